package controllers

import (
	"net/http"

	"tailorfinder/services"
	"tailorfinder/utils"
)

func Signup(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}

	owner, err := svc.Register(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.SendJSONResponse(w, http.StatusCreated, owner.Profile())
}

func Login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &creds) {
		return
	}

	token, owner, err := svc.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.SendJSONResponse(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"owner": owner.Profile(),
	})
}

func Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	if err := svc.Logout(r.Context(), sess); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	owner, found := svc.Owner(r.Context(), sess.OwnerEmail)
	if !found {
		respondError(w, r, services.ErrOwnerNotFound)
		return
	}
	utils.SendJSONResponse(w, http.StatusOK, owner.Profile())
}

func DeleteMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	if err := svc.DeleteAccount(r.Context(), sess); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListOwners serves the public owner cards, filtered by ?q=.
func ListOwners(w http.ResponseWriter, r *http.Request) {
	utils.SendJSONResponse(w, http.StatusOK, svc.ListOwnerCards(r.Context(), r.URL.Query().Get("q")))
}

func OwnerDesigns(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	if _, found := svc.Owner(r.Context(), email); !found {
		respondError(w, r, services.ErrOwnerNotFound)
		return
	}
	utils.SendJSONResponse(w, http.StatusOK, svc.ListDesignsForOwner(r.Context(), email))
}

func OwnerRating(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	if _, found := svc.Owner(r.Context(), email); !found {
		respondError(w, r, services.ErrOwnerNotFound)
		return
	}
	utils.SendJSONResponse(w, http.StatusOK, svc.Aggregate(r.Context(), email))
}

func RateOwner(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rating float64 `json:"rating"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	agg, err := svc.RecordRating(r.Context(), r.PathValue("email"), body.Rating)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.SendJSONResponse(w, http.StatusCreated, agg)
}
