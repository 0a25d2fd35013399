package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/palpitei-api/internal/catalog/model"
	"github.com/radieske/palpitei-api/internal/catalog/service"
	"github.com/radieske/palpitei-api/internal/catalog/validate"
)

const maxBodyBytes = 10 << 20

// mountCollection registra list/create/get/update/delete de uma coleção
func mountCollection[T model.Entity[T]](s *Server, r chi.Router, repo *service.Repository[T]) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		items, err := repo.List(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	})

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(w, r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		rec, err := validate.Entity[T](body, false)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		created, err := repo.Create(r.Context(), rec)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	})

	update := func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(w, r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		patch, err := validate.Entity[T](body, true)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		updated, err := repo.Update(r.Context(), idParam(r), patch)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}

	r.Get("/{id}", getHandler(s, repo))
	r.Put("/{id}", update)
	r.Patch("/{id}", update)
	r.Delete("/{id}", deleteHandler(s, repo))
}

// idParam retorna o {id} decodificado. O chi casa a rota sobre RawPath quando
// ele existe (ex: "%2F" no id) e nesse caso entrega o segmento ainda codificado.
func idParam(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return id
	}
	if decoded, err := url.PathUnescape(id); err == nil {
		return decoded
	}
	return id
}

func getHandler[T model.Entity[T]](s *Server, repo *service.Repository[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := repo.Get(r.Context(), idParam(r))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func deleteHandler[T model.Entity[T]](s *Server, repo *service.Repository[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := repo.Delete(r.Context(), idParam(r)); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// listMarkets aplica os filtros gameId, provider, marketType, processed e profitable
func (s *Server) listMarkets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := s.catalog.Markets.List(r.Context(), service.MarketFilter{
		GameID:     q.Get("gameId"),
		Provider:   q.Get("provider"),
		MarketType: q.Get("marketType"),
		Processed:  service.ParseBoolFilter(q.Get("processed")),
		Profitable: service.ParseBoolFilter(q.Get("profitable")),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) createMarket(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := validate.Entity[model.Market](body, false)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.catalog.Markets.Create(r.Context(), m)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type markFunc func(ctx context.Context, items []model.Market) (int, error)

// markMarkets trata /processed e /profitable: array ou {items}, responde {count}
func (s *Server) markMarkets(mark markFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(w, r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		items, err := validate.MarketBatch(body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		n, err := mark(r.Context(), items)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"count": n})
	}
}

// ingest aplica o payload composto e responde as contagens por coleção
func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	payload, err := validate.Ingest(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sum, err := s.catalog.Ingest(r.Context(), payload)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// readBody só considera o corpo quando Content-Type é JSON e o corpo não está em branco;
// nos demais casos retorna nil (corpo ausente)
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return nil, nil
	}
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	return b, nil
}

// fail converte o erro no status/corpo correspondente
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *validate.Error
		nf  *service.NotFoundError
		mbe *http.MaxBytesError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody(ve))
	case errors.Is(err, validate.ErrMalformedBody):
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_JSON"))
	case errors.Is(err, validate.ErrInvalidBody):
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_BODY"))
	case errors.As(err, &mbe):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("PAYLOAD_TOO_LARGE"))
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errorBody(nf.Kind.NotFoundCode()))
	default:
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody("INTERNAL_SERVER_ERROR"))
	}
}
