package main

import (
	"net/http"

	"estateflow/agent"
)

type agentResponse struct {
	AgentID   int64  `json:"agent_id"`
	Username  string `json:"username"`
	LicenseNo string `json:"license_no"`
	Region    string `json:"region"`
}

func toAgentResponse(a agent.Agent) agentResponse {
	return agentResponse{
		AgentID:   a.ID,
		Username:  a.Username,
		LicenseNo: a.LicenseNo,
		Region:    a.Region,
	}
}

type agentRequest struct {
	Username  string `json:"username"`
	LicenseNo string `json:"license_no"`
	Region    string `json:"region"`
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.agents.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]agentResponse, 0, len(agents))
	for _, a := range agents {
		items = append(items, toAgentResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": items})
}

func (s *Server) handleAddAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	created, err := s.agents.Create(r.Context(), agent.CreateParams{
		Username:  req.Username,
		LicenseNo: req.LicenseNo,
		Region:    req.Region,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Agent added successfully",
		"agent_id": created.ID,
	})
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	var req agentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	updated, err := s.agents.Update(r.Context(), id, agent.UpdateParams{
		Username:  req.Username,
		LicenseNo: req.LicenseNo,
		Region:    req.Region,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Agent updated successfully",
		"agent":   toAgentResponse(updated),
	})
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	if err := s.agents.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Agent deleted successfully"})
}
