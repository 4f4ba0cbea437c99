package controllers

import (
	"io"
	"net/http"
	"strconv"

	"tailorfinder/utils"
)

const maxBackupBody = 256 << 20

// ExportBackup downloads the full backup document as a JSON attachment.
func ExportBackup(w http.ResponseWriter, r *http.Request) {
	data, name, err := svc.ExportJSON(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func RestoreBackup(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBackupBody))
	if err != nil {
		utils.HandleError(w, http.StatusRequestEntityTooLarge, "Backup is too large")
		return
	}

	summary, err := svc.Restore(r.Context(), data)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.SendJSONResponse(w, http.StatusOK, summary)
}

func ClearData(w http.ResponseWriter, r *http.Request) {
	if err := svc.ClearAll(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StorageStats exposes the storage latency histograms.
func StorageStats(w http.ResponseWriter, r *http.Request) {
	if stats == nil {
		utils.HandleError(w, http.StatusNotFound, "Storage metrics are disabled")
		return
	}
	utils.SendJSONResponse(w, http.StatusOK, stats.Snapshot())
}
