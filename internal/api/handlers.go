package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/codewiithcherry/ASHAAIBOT/internal/auth"
	"github.com/codewiithcherry/ASHAAIBOT/internal/core"
	"github.com/codewiithcherry/ASHAAIBOT/internal/jobs"
	"github.com/codewiithcherry/ASHAAIBOT/internal/store"
)

type ctxKey string

const currentUserKey ctxKey = "currentUser"

type APIHandler struct {
	chatService *core.ChatService
	users       store.UserStore
	sessions    store.SessionStore
	jobsClient  *jobs.Client
}

func NewAPIHandler(cs *core.ChatService, users store.UserStore, sessions store.SessionStore, jobsClient *jobs.Client) *APIHandler {
	return &APIHandler{
		chatService: cs,
		users:       users,
		sessions:    sessions,
		jobsClient:  jobsClient,
	}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		email, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Could not validate credentials", http.StatusUnauthorized)
			return
		}

		user, err := h.users.Get(email)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for user %s: %v", email, err)
			http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "Could not validate credentials", http.StatusUnauthorized)
			return
		}
		if user.Disabled {
			http.Error(w, "Inactive user", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), currentUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Disabled bool   `json:"disabled"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Password string `json:"password"`
}

func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for user %s: %v", req.Email, err)
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	user := store.User{
		Email:          req.Email,
		FullName:       req.FullName,
		HashedPassword: hashedPassword,
		Disabled:       false,
	}
	if err := h.users.Create(user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			http.Error(w, "Email already registered", http.StatusConflict)
			return
		}
		log.Printf("Error creating user %s: %v", req.Email, err)
		http.Error(w, "Registration failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(userResponse{ID: user.Email, Email: user.Email, FullName: user.FullName})
}

// TokenHandler issues an access token. It accepts the OAuth2
// password-grant form shape (username/password) used by the frontend,
// with a JSON body as fallback for plain API clients.
func (h *APIHandler) TokenHandler(w http.ResponseWriter, r *http.Request) {
	var email, password string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		email, password = req.Email, req.Password
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form body: "+err.Error(), http.StatusBadRequest)
			return
		}
		email = r.PostFormValue("username")
		password = r.PostFormValue("password")
	}

	if email == "" || password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.users.Get(email)
	if err != nil {
		log.Printf("Error getting user %s: %v", email, err)
		http.Error(w, "Incorrect email or password", http.StatusUnauthorized)
		return
	}
	if user == nil || !auth.CheckPasswordHash(password, user.HashedPassword) {
		http.Error(w, "Incorrect email or password", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(email)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", email, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"access_token": token, "token_type": "bearer"})
}

func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(currentUserKey).(*store.User)
	json.NewEncoder(w).Encode(userResponse{
		ID:       user.Email,
		Email:    user.Email,
		FullName: user.FullName,
		Disabled: user.Disabled,
	})
}

type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	UserInput      string `json:"user_input"`
}

type ChatResponse struct {
	Response            string          `json:"response"`
	ConversationHistory []store.Message `json:"conversation_history"`
	Status              string          `json:"status"`
	ConversationID      string          `json:"conversation_id"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserInput == "" {
		http.Error(w, "user_input cannot be empty", http.StatusBadRequest)
		return
	}

	result := h.chatService.Respond(r.Context(), req.ConversationID, req.UserInput)

	json.NewEncoder(w).Encode(ChatResponse{
		Response:            result.Response,
		ConversationHistory: result.History,
		Status:              result.Status,
		ConversationID:      result.ConversationID,
	})
}

func (h *APIHandler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	if len(h.chatService.History(conversationID)) == 0 {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}

	result := h.chatService.Summarize(r.Context(), conversationID)
	json.NewEncoder(w).Encode(map[string]string{"summary": result.Text, "status": result.Status})
}

func (h *APIHandler) JobsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	location := r.URL.Query().Get("location")

	results, err := h.jobsClient.Search(r.Context(), query, location)
	if err != nil {
		// The job board being down should not break the page.
		log.Printf("Error searching jobs (query=%q location=%q): %v", query, location, err)
		results = []jobs.Job{}
	}
	json.NewEncoder(w).Encode(map[string][]jobs.Job{"jobs": results})
}

type SessionRequest struct {
	MentorName string `json:"mentorName"`
	Date       string `json:"date"`
	Time       string `json:"time"`
}

func (h *APIHandler) ScheduleSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		http.Error(w, "Invalid date format", http.StatusBadRequest)
		return
	}

	session := store.Session{
		MentorName: req.MentorName,
		Date:       req.Date,
		Time:       req.Time,
		Status:     "scheduled",
	}
	if err := h.sessions.Append(session); err != nil {
		log.Printf("Error saving session with %s: %v", req.MentorName, err)
		http.Error(w, "Failed to schedule session", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Session scheduled successfully"})
}

func (h *APIHandler) ScheduledSessionsHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(h.sessions.All())
}
