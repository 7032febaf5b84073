package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gearshop/gearshop"
	"github.com/gearshop/gearshop/pkg/storage"
)

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
}

func (req productRequest) input() gearshop.ProductInput {
	return gearshop.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Image:       req.Image,
	}
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	product, err := s.client.CreateProduct(r.Context(), accountID(r.Context()), req.input())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.client.ProductByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.client.ListProducts(r.Context(), storage.SortLatest)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleSortProducts(w http.ResponseWriter, r *http.Request) {
	sort := gearshop.ParseSort(r.URL.Query().Get("sortBy"))
	products, err := s.client.ListProducts(r.Context(), sort)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	search := gearshop.ProductSearch{
		Search:     query.Get("search"),
		Categories: splitCategories(query.Get("categories")),
		Sort:       gearshop.ParseSort(query.Get("sort")),
	}

	products, err := s.client.SearchProducts(r.Context(), search)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func splitCategories(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (s *Server) handleMyProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.client.MyProducts(r.Context(), accountID(r.Context()))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	product, err := s.client.UpdateProduct(r.Context(), accountID(r.Context()), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.client.DeleteProduct(r.Context(), accountID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

type purgeRequest struct {
	Categories []string `json:"categories"`
}

type purgeResponse struct {
	Deleted    int64    `json:"deleted"`
	Categories []string `json:"categories"`
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	// Categories come from the ?category= query parameter or a JSON body;
	// with neither, every purgeable category is swept.
	requested := splitCategories(r.URL.Query().Get("category"))
	if len(requested) == 0 {
		var req purgeRequest
		if err := decodeBody(r, &req); err != nil && !isEmptyBody(err) {
			writeError(w, s.logger, err)
			return
		}
		requested = req.Categories
	}

	deleted, categories, err := s.client.PurgeCategories(r.Context(), accountID(r.Context()), requested)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, purgeResponse{Deleted: deleted, Categories: categories})
}

func isEmptyBody(err error) bool {
	return errors.Is(err, io.EOF)
}
