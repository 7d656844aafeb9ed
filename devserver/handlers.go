package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/gorilla/mux"
)

type ctxKey struct{}

func currentUser(r *http.Request) user {
	u, _ := r.Context().Value(ctxKey{}).(user)
	return u
}

// authed resolves the bearer token to a user or answers 401.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		tok, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || tok == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		id, err := s.tokens.verify(tok)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		u, found := s.store.user(id)
		if !found {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
	}
}

func requireRole(w http.ResponseWriter, u user, roles ...string) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	writeDetail(w, http.StatusForbidden, "Forbidden")
	return false
}

func pathID(r *http.Request, name string) int64 {
	n, _ := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return n
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeValidation(w, fieldError{Loc: []string{"body"}, Msg: "Invalid JSON body", Type: "json_invalid"})
		return false
	}
	return true
}

func missing(field string) fieldError {
	return fieldError{Loc: []string{"body", field}, Msg: "Field required", Type: "missing"}
}

// ---- auth ----

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeValidation(w, fieldError{Loc: []string{"body"}, Msg: "Invalid form body", Type: "form_invalid"})
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || password == "" {
		writeValidation(w, missing("username"))
		return
	}
	u, ok := s.store.authenticate(username, password)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: s.tokens.issue(u.UserID), TokenType: "bearer"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	var errs []fieldError
	for field, v := range map[string]string{"email": in.Email, "name": in.Name, "password": in.Password} {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, missing(field))
		}
	}
	if in.Role == "" {
		in.Role = roleUser
	}
	if !validRole(in.Role) {
		errs = append(errs, fieldError{Loc: []string{"body", "role"}, Msg: "Input should be 'admin', 'manager' or 'user'", Type: "enum"})
	}
	if len(errs) > 0 {
		writeValidation(w, errs...)
		return
	}
	u, err := s.store.addUser(in.Email, in.Name, in.Password, in.Role)
	if errors.Is(err, errEmailTaken) {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: s.tokens.issue(u.UserID), TokenType: "bearer"})
}

// ---- users ----

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, currentUser(r), roleAdmin, roleManager) {
		return
	}
	writeJSON(w, http.StatusOK, s.store.listUsers())
}

// ---- projects ----

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.projectsFor(currentUser(r)))
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if !requireRole(w, u, roleAdmin, roleManager) {
		return
	}
	var in struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeValidation(w, missing("name"))
		return
	}
	writeJSON(w, http.StatusOK, s.store.createProject(in.Name, u.UserID))
}

// ---- tasks ----

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	pid := pathID(r, "projectId")
	if !s.store.projectExists(pid) {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	writeJSON(w, http.StatusOK, s.store.tasksFor(pid, currentUser(r)))
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	pid := pathID(r, "projectId")
	if !s.store.projectExists(pid) {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	if u.Role != roleAdmin && !s.store.isOwner(pid, u.UserID) {
		writeDetail(w, http.StatusForbidden, "Not project owner")
		return
	}
	var in struct {
		Title       string           `json:"title"`
		Description string           `json:"description"`
		Priority    string           `json:"priority"`
		DueAt       *strfmt.DateTime `json:"dueAt"`
		Assets      []string         `json:"assets"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		writeValidation(w, missing("title"))
		return
	}
	if !validPriority(in.Priority) {
		writeValidation(w, fieldError{Loc: []string{"body", "priority"}, Msg: "Input should be 'low', 'medium' or 'high'", Type: "enum"})
		return
	}
	t := s.store.createTask(task{
		ProjectID:   pid,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		DueAt:       in.DueAt,
		Assets:      in.Assets,
	}, u.UserID)
	writeJSON(w, http.StatusOK, t)
}

// updateStatus answers with an acknowledgement rather than the task.
func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if !validStatus(status) {
		writeValidation(w, fieldError{Loc: []string{"query", "status"}, Msg: "Input should be 'todo', 'ongoing' or 'complete'", Type: "enum"})
		return
	}
	if _, err := s.store.setStatus(pathID(r, "taskId"), currentUser(r).UserID, status); err != nil {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "Status updated"})
}

func (s *Server) taskLogs(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	tid := pathID(r, "taskId")
	if _, ok := s.store.task(tid); !ok {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	if u.Role != roleAdmin && !s.store.isAssignee(tid, u.UserID) {
		writeDetail(w, http.StatusForbidden, "Not authorized")
		return
	}
	writeJSON(w, http.StatusOK, s.store.logsFor(tid))
}

func (s *Server) assign(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	tid, uid := pathID(r, "taskId"), pathID(r, "userId")
	t, ok := s.store.task(tid)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	if u.Role != roleAdmin && !s.store.isOwner(t.ProjectID, u.UserID) {
		writeDetail(w, http.StatusForbidden, "Not authorized")
		return
	}
	if _, ok := s.store.user(uid); !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	if err := s.store.assign(tid, uid, u.UserID); err != nil {
		writeDetail(w, http.StatusBadRequest, "User already assigned")
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "User assigned"})
}

func (s *Server) unassign(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	tid, uid := pathID(r, "taskId"), pathID(r, "userId")
	t, ok := s.store.task(tid)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	if u.Role != roleAdmin && !s.store.isOwner(t.ProjectID, u.UserID) {
		writeDetail(w, http.StatusForbidden, "Not authorized")
		return
	}
	if err := s.store.unassign(tid, uid, u.UserID); err != nil {
		writeDetail(w, http.StatusNotFound, "Assignment not found")
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "User unassigned"})
}

// ---- time entries ----

func (s *Server) createTimeEntry(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	var in struct {
		ProjectID int64       `json:"projectId"`
		TaskID    *int64      `json:"taskId"`
		Hours     json.Number `json:"hours"`
		Billable  string      `json:"billable"`
		WorkDate  strfmt.Date `json:"workDate"`
		Note      string      `json:"note"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	hours, err := in.Hours.Float64()
	if err != nil || hours <= 0 {
		writeValidation(w, fieldError{Loc: []string{"body", "hours"}, Msg: "Input should be greater than 0", Type: "greater_than"})
		return
	}
	if in.Billable != "billable" && in.Billable != "non_billable" {
		writeValidation(w, fieldError{Loc: []string{"body", "billable"}, Msg: "Input should be 'billable' or 'non_billable'", Type: "enum"})
		return
	}
	if time.Time(in.WorkDate).IsZero() {
		writeValidation(w, missing("workDate"))
		return
	}
	if !s.store.projectExists(in.ProjectID) {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	te, ok := s.store.addTimeEntry(timeEntry{
		UserID:    u.UserID,
		ProjectID: in.ProjectID,
		TaskID:    in.TaskID,
		Hours:     strconv.FormatFloat(hours, 'f', 2, 64),
		Billable:  in.Billable,
		WorkDate:  in.WorkDate,
		Note:      in.Note,
		hours:     hours,
	})
	if !ok {
		writeDetail(w, http.StatusForbidden, "Daily limit exceeded. Maximum 8 hours per day.")
		return
	}
	writeJSON(w, http.StatusOK, te)
}
