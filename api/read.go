package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ismrmrd/dicomweb-gateway/core"
)

func (handler *Handler) GetDelivery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	delivery, err := handler.journal.GetDelivery(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		log.Error().Err(err).Msg("Database read failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJson(w, r, http.StatusOK, CreateDeliveryInfo(r, delivery))
}
