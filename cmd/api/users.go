package main

import (
	"net/http"

	"estateflow/auth"
	"estateflow/user"
)

type userResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func toUserResponse(u user.User) userResponse {
	return userResponse{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     string(u.Role),
	}
}

type userRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]userResponse, 0, len(users))
	for _, u := range users {
		items = append(items, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": items})
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeBody(w, r, &req) {
		return
	}

	created, err := s.users.Create(r.Context(), user.CreateParams{
		Username: req.Username,
		Email:    req.Email,
		Role:     user.Role(req.Role),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User added successfully",
		"user_id": created.ID,
	})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req userRequest
	if !decodeBody(w, r, &req) {
		return
	}

	updated, err := s.users.Update(r.Context(), id, user.UpdateParams{
		Username: req.Username,
		Email:    req.Email,
		Role:     user.Role(req.Role),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User updated successfully",
		"user":    toUserResponse(updated),
	})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := s.users.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	account, err := s.auth.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Account registered successfully",
		"user_id": account.ID,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.auth.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":   result.Token,
		"user_id": result.Account.ID,
		"role":    result.Account.Role,
	})
}
