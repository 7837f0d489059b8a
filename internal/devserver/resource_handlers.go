package devserver

import (
	"fmt"
	"net/http"
	"strings"

	"xydo.org/internal/auth"
	"xydo.org/internal/session"
)

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request, _ session.User) {
	writeJSON(w, http.StatusOK, okList(s.dir.ListUsers(r.Context())))
}

// Users may read and edit themselves; admins and coaches may read anyone.
func (s *Server) getUser(w http.ResponseWriter, r *http.Request, caller session.User) {
	id := r.PathValue("id")
	if id != caller.ID && caller.Role != auth.RoleAdmin && caller.Role != auth.RoleCoach {
		writeError(w, r, http.StatusForbidden, "Not authorized to view this user")
		return
	}
	u, err := s.dir.GetUser(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(u))
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request, caller session.User) {
	id := r.PathValue("id")
	if id != caller.ID && caller.Role != auth.RoleAdmin {
		writeError(w, r, http.StatusForbidden, "Not authorized to update this user")
		return
	}
	var patch UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if patch.Role != nil {
		if caller.Role != auth.RoleAdmin {
			writeError(w, r, http.StatusForbidden, "Only admins may change roles")
			return
		}
		if !patch.Role.Valid() {
			writeError(w, r, http.StatusBadRequest, "Invalid role")
			return
		}
	}
	u, err := s.dir.UpdateUser(r.Context(), id, patch)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(u))
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request, _ session.User) {
	if err := s.dir.DeleteUser(r.Context(), r.PathValue("id")); err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(map[string]any{}))
}

// listDocs filters on query parameters by exact match of the stored value.
func (s *Server) listDocs(collection string) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, _ session.User) {
		q := r.URL.Query()
		match := func(doc Record) bool {
			for k := range q {
				if fmt.Sprint(doc[k]) != q.Get(k) {
					return false
				}
			}
			return true
		}
		docs, err := s.dir.List(r.Context(), collection, match)
		if err != nil {
			handleStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, okList(docs))
	}
}

func (s *Server) getDoc(collection string) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, _ session.User) {
		doc, err := s.dir.Get(r.Context(), collection, r.PathValue("id"))
		if err != nil {
			handleStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ok(doc))
	}
}

func (s *Server) createDoc(collection string) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, caller session.User) {
		var rec Record
		if err := decodeJSON(w, r, &rec); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if rec == nil {
			rec = Record{}
		}
		if msg := validateDoc(collection, rec); msg != "" {
			writeError(w, r, http.StatusBadRequest, msg)
			return
		}
		switch collection {
		case Messages:
			rec["author"] = caller.ID
		case Feedback:
			rec["user"] = caller.ID
		case Content:
			if _, ok := rec["role"]; !ok {
				rec["role"] = "both"
			}
		}
		doc, err := s.dir.Create(r.Context(), collection, rec)
		if err != nil {
			handleStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, ok(doc))
	}
}

func (s *Server) updateDoc(collection string) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, _ session.User) {
		var patch Record
		if err := decodeJSON(w, r, &patch); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		doc, err := s.dir.Update(r.Context(), collection, r.PathValue("id"), patch)
		if err != nil {
			handleStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ok(doc))
	}
}

func (s *Server) deleteDoc(collection string) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, _ session.User) {
		if err := s.dir.Delete(r.Context(), collection, r.PathValue("id")); err != nil {
			handleStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ok(map[string]any{}))
	}
}

type replyRequest struct {
	Content string `json:"content"`
}

func (s *Server) replyMessage(w http.ResponseWriter, r *http.Request, caller session.User) {
	var req replyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, r, http.StatusBadRequest, "Please add reply content")
		return
	}
	doc, err := s.dir.Reply(r.Context(), r.PathValue("id"), caller.ID, req.Content)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(doc))
}

func (s *Server) likeMessage(w http.ResponseWriter, r *http.Request, caller session.User) {
	doc, err := s.dir.Like(r.Context(), r.PathValue("id"), caller.ID)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(doc))
}

func (s *Server) pinMessage(w http.ResponseWriter, r *http.Request, _ session.User) {
	doc, err := s.dir.TogglePin(r.Context(), r.PathValue("id"))
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(doc))
}

// validateDoc returns a client-facing message for a document missing
// required fields, or "".
func validateDoc(collection string, rec Record) string {
	has := func(k string) bool {
		s, ok := rec[k].(string)
		return ok && strings.TrimSpace(s) != ""
	}
	switch collection {
	case Teams:
		if !has("name") {
			return "Please add a team name"
		}
	case Content:
		week, ok := rec["week"].(float64)
		if !ok || week < 1 {
			return "Please add a week number"
		}
		if !has("title") {
			return "Please add a title"
		}
	case Videos:
		if !has("title") || !has("url") {
			return "Please add a title and url"
		}
	case Messages:
		if !has("content") {
			return "Please add message content"
		}
	}
	return ""
}
