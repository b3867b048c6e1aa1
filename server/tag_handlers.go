package server

import (
	"net/http"

	"github.com/giftwish/giftwish/internal/localization"
	"github.com/giftwish/giftwish/tags"
)

func (s *Server) ListTagsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listed, err := s.services.Tags.List(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		locale := localization.RequestLocale(r)
		views := make([]tags.View, 0, len(listed))
		for _, tag := range listed {
			views = append(views, tag.Localize(locale))
		}
		s.writeJSON(w, http.StatusOK, views)
	}
}

func (s *Server) CreateTagHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input tags.WriteInput
		if !s.decodeJSON(w, r, &input) {
			return
		}
		tag, err := s.services.Tags.Create(r.Context(), input)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, tag)
	}
}

func (s *Server) UpdateTagHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input tags.WriteInput
		if !s.decodeJSON(w, r, &input) {
			return
		}
		tag, err := s.services.Tags.Update(r.Context(), r.PathValue("id"), input)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, tag)
	}
}

func (s *Server) DeleteTagHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.services.Tags.Delete(r.Context(), r.PathValue("id")); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
