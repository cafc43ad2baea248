package handlers

import (
	"net/http"

	"github.com/diagnosis/institute-portal/services/portal/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// sessionUserID is the subject of the caller's session token.
func sessionUserID(r *http.Request) (bson.ObjectID, error) {
	claims := getClaims(r)
	if claims == nil {
		return bson.ObjectID{}, domain.ErrMissingToken
	}
	id, err := bson.ObjectIDFromHex(claims.Sub)
	if err != nil {
		return bson.ObjectID{}, domain.ErrInvalidToken
	}
	return id, nil
}

// GetFees returns the caller's fee ledger
func (h *Handlers) GetFees(w http.ResponseWriter, r *http.Request) {
	id, err := sessionUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ledger, err := h.feesService.Ledger(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "fees": ledger})
}

func (h *Handlers) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := sessionUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req domain.InitiatePaymentRequest
	if !decode(w, r, &req) {
		return
	}

	order, err := h.feesService.InitiatePayment(r.Context(), id, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"orderId":      order.ID,
		"provider":     order.Provider,
		"key":          order.Key,
		"clientSecret": order.ClientSecret,
		"amount":       order.Amount,
		"currency":     order.Currency,
	})
}

func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	id, err := sessionUserID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req domain.VerifyPaymentRequest
	if !decode(w, r, &req) {
		return
	}

	ledger, err := h.feesService.VerifyPayment(r.Context(), id, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Payment verified and updated",
		"fees":    ledger,
	})
}

// ManualPayment records an admin-entered payment
func (h *Handlers) ManualPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.ManualPaymentRequest
	if !decode(w, r, &req) {
		return
	}

	ledger, err := h.feesService.ManualPayment(r.Context(), getClaims(r).Sub, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Payment recorded",
		"fees":    ledger,
	})
}

func (h *Handlers) ChargeFees(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req domain.ChargeRequest
	if !decode(w, r, &req) {
		return
	}

	ledger, err := h.feesService.IncreaseTotal(r.Context(), id, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "fees": ledger})
}
