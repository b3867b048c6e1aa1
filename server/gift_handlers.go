package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/giftwish/giftwish/gifts"
	"github.com/giftwish/giftwish/internal/localization"
)

// displayCurrency resolves which currency to show prices in: an explicit
// query parameter wins, otherwise the request locale picks a sensible one.
func displayCurrency(r *http.Request) string {
	if c := strings.ToUpper(r.URL.Query().Get("currency")); len(c) == 3 {
		return c
	}
	locale := localization.FromRequest(r)
	if region, _ := locale.Region(); region.IsCountry() {
		switch region.String() {
		case "US":
			return "USD"
		case "GB":
			return "GBP"
		case "PL":
			return "PLN"
		case "UA":
			return "UAH"
		case "DE", "FR", "ES":
			return "EUR"
		}
	}
	return ""
}

// viewerFromRequest derives who is looking and how to shape gifts for them.
func viewerFromRequest(r *http.Request) gifts.Viewer {
	return gifts.Viewer{
		Email:    callerEmail(r.Context()),
		Currency: displayCurrency(r),
		Locale:   localization.RequestLocale(r),
	}
}

func (s *Server) ListGiftsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		cursor := r.URL.Query().Get("cursor")

		page, err := s.services.Gifts.List(r.Context(), cursor, limit, viewerFromRequest(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, page)
	}
}

func (s *Server) GetGiftHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := s.services.Gifts.Get(r.Context(), r.PathValue("id"), viewerFromRequest(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) CreateGiftHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input gifts.WriteInput
		if !s.decodeJSON(w, r, &input) {
			return
		}
		gift, err := s.services.Gifts.Create(r.Context(), input)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, gift)
	}
}

func (s *Server) UpdateGiftHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input gifts.WriteInput
		if !s.decodeJSON(w, r, &input) {
			return
		}
		gift, err := s.services.Gifts.Update(r.Context(), r.PathValue("id"), input)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, gift)
	}
}

func (s *Server) DeleteGiftHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.services.Gifts.Delete(r.Context(), r.PathValue("id")); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ReserveGiftHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservation, err := s.services.Gifts.Reserve(r.Context(), r.PathValue("id"), callerEmail(r.Context()))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, reservation)
	}
}

func (s *Server) UnreserveGiftHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.services.Gifts.Unreserve(r.Context(), r.PathValue("id"), callerEmail(r.Context())); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
