package controllers

import (
	"mime/multipart"
	"net/http"

	"github.com/sirupsen/logrus"

	"tailorfinder/services"
	"tailorfinder/utils"
)

const multipartMemory = 10 << 20

// UploadDesigns takes any number of files in the "files" form field.
func UploadDesigns(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		utils.HandleError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	files := make([]services.UploadFile, 0, len(headers))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			logrus.WithError(err).WithField("file", h.Filename).Warn("failed to open uploaded file")
			files = append(files, services.UploadFile{Name: h.Filename, MediaType: h.Header.Get("Content-Type"), Size: h.Size})
			continue
		}
		opened = append(opened, f)
		files = append(files, services.UploadFile{
			Name:      h.Filename,
			MediaType: h.Header.Get("Content-Type"),
			Size:      h.Size,
			Content:   f,
		})
	}

	report, err := svc.UploadDesigns(r.Context(), sess, files)
	if err != nil {
		respondError(w, r, err)
		return
	}
	status := http.StatusCreated
	if report.Uploaded == 0 {
		status = http.StatusUnprocessableEntity
	}
	utils.SendJSONResponse(w, status, report)
}

func ListDesigns(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	utils.SendJSONResponse(w, http.StatusOK, svc.ListDesignsForOwner(r.Context(), sess.OwnerEmail))
}

func DeleteDesign(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	deleted, err := svc.DeleteDesign(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !deleted {
		utils.HandleError(w, http.StatusNotFound, "Design not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
