package controllers

import (
	"net/http"

	"tailorfinder/services"
	"tailorfinder/utils"
)

// PlaceOrder is public: customers order from an owner without signing in.
func PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var in services.OrderInput
	if !decodeJSON(w, r, &in) {
		return
	}

	order, err := svc.PlaceOrder(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.SendJSONResponse(w, http.StatusCreated, order)
}

func ListOrders(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	utils.SendJSONResponse(w, http.StatusOK, svc.SearchOrders(r.Context(), sess.OwnerEmail, r.URL.Query().Get("q")))
}

func SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	var body struct {
		Delivered bool `json:"delivered"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	changed, err := svc.SetOrderStatus(r.Context(), sess, r.PathValue("id"), body.Delivered)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !changed {
		utils.HandleError(w, http.StatusNotFound, "Order not found")
		return
	}
	utils.SendJSONResponse(w, http.StatusOK, map[string]bool{"delivered": body.Delivered})
}

func DeleteOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	deleted, err := svc.DeleteOrder(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !deleted {
		utils.HandleError(w, http.StatusNotFound, "Order not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func ClearOrders(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	removed, err := svc.ClearOrders(r.Context(), sess)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.SendJSONResponse(w, http.StatusOK, map[string]int{"removed": removed})
}
