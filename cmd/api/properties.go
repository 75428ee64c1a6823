package main

import (
	"net/http"

	"estateflow/property"
)

type propertyResponse struct {
	PropertyID   int64   `json:"property_id"`
	Agent        *string `json:"agent"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	City         string  `json:"city"`
	Locality     string  `json:"locality"`
	Price        float64 `json:"price"`
	PropertyType string  `json:"property_type"`
	Status       string  `json:"status"`
}

func toPropertyResponse(p property.Property) propertyResponse {
	return propertyResponse{
		PropertyID:   p.ID,
		Agent:        p.AgentUsername,
		Title:        p.Title,
		Description:  p.Description,
		City:         p.City,
		Locality:     p.Locality,
		Price:        p.Price,
		PropertyType: string(p.PropertyType),
		Status:       string(p.Status),
	}
}

type propertyRequest struct {
	AgentUsername string   `json:"agent_username"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	City          string   `json:"city"`
	Locality      string   `json:"locality"`
	Price         *float64 `json:"price"`
	PropertyType  string   `json:"property_type"`
	Status        string   `json:"status"`
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := s.properties.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"properties": toPropertyResponses(properties)})
}

func toPropertyResponses(properties []property.Property) []propertyResponse {
	items := make([]propertyResponse, 0, len(properties))
	for _, p := range properties {
		items = append(items, toPropertyResponse(p))
	}
	return items
}

func (s *Server) handleAddProperty(w http.ResponseWriter, r *http.Request) {
	var req propertyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	price := 0.0
	if req.Price != nil {
		price = *req.Price
	}

	created, err := s.properties.Create(r.Context(), property.CreateParams{
		AgentUsername: req.AgentUsername,
		Title:         req.Title,
		Description:   req.Description,
		City:          req.City,
		Locality:      req.Locality,
		Price:         price,
		PropertyType:  property.DealType(req.PropertyType),
		Status:        property.Status(req.Status),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Property added successfully",
		"property_id": created.ID,
	})
}

func (s *Server) handleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid property id")
		return
	}

	var req propertyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	updated, err := s.properties.Update(r.Context(), id, property.UpdateParams{
		AgentUsername: req.AgentUsername,
		Title:         req.Title,
		Description:   req.Description,
		City:          req.City,
		Locality:      req.Locality,
		Price:         req.Price,
		PropertyType:  property.DealType(req.PropertyType),
		Status:        property.Status(req.Status),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Property updated successfully",
		"property": toPropertyResponse(updated),
	})
}

func (s *Server) handleUpdatePropertyStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid property id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.properties.UpdateStatus(r.Context(), id, property.Status(req.Status)); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Property status updated successfully"})
}

func (s *Server) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid property id")
		return
	}

	if err := s.properties.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Property deleted successfully"})
}

func (s *Server) handleAvailableProperties(w http.ResponseWriter, r *http.Request) {
	city := r.PathValue("city")

	properties, err := s.properties.AvailableByCity(r.Context(), city)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"city":       city,
		"properties": toPropertyResponses(properties),
	})
}

func (s *Server) handleCheckProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid property id")
		return
	}

	price, err := s.properties.CheckPrice(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"property_id": id,
		"price":       price,
	})
}

func (s *Server) handleTotalSales(w http.ResponseWriter, r *http.Request) {
	agentID, ok := pathID(r, "agent_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	total, err := s.reports.TotalSales(r.Context(), agentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id":    agentID,
		"total_sales": total,
	})
}

func (s *Server) handleTotalCommission(w http.ResponseWriter, r *http.Request) {
	agentID, ok := pathID(r, "agent_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	total, err := s.reports.TotalCommission(r.Context(), agentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id":         agentID,
		"total_commission": total,
	})
}
