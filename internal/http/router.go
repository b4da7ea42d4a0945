package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/attendant-coordinator/internal/application"
)

type RouterConfig struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Events      *EventHandler
	Attendants  *AttendantHandler
	Assignments *AssignmentHandler
	Counts      *CountHandler
	Sessions    SessionValidator
	Logger      *slog.Logger
	Middleware  []func(http.Handler) http.Handler
}

// NewRouter assembles the HTTP surface: /sessions, /registrations and
// /invitations/accept are public; everything under /api requires a session,
// and /api/admin requires the ADMIN role.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Auth != nil {
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.CreateSession(w, r)
		})
		mux.HandleFunc("/sessions/current", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Auth.DeleteCurrentSession(w, r)
		})
	}

	if cfg.Users != nil {
		mux.HandleFunc("/registrations", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Users.Register(w, r)
		})
		mux.HandleFunc("/invitations/accept", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Users.AcceptInvitation(w, r)
		})
	}

	apiMux := http.NewServeMux()
	registerEventRoutes(apiMux, cfg.Events)
	registerAttendantRoutes(apiMux, cfg.Attendants)
	registerAssignmentRoutes(apiMux, cfg.Assignments)
	registerCountRoutes(apiMux, cfg.Counts)
	registerAdminRoutes(apiMux, cfg.Users, cfg.Logger)

	var api http.Handler = apiMux
	if cfg.Sessions != nil {
		api = RequireSession(cfg.Sessions, cfg.Logger)(api)
	}
	mux.Handle("/api/", api)

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

func registerEventRoutes(mux *http.ServeMux, handler *EventHandler) {
	if handler == nil {
		return
	}
	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handler.List(w, r)
		case http.MethodPost:
			handler.Create(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	})
	mux.HandleFunc("/api/events/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/events/")
		id, sub := splitResourcePath(rest)
		if id == "" {
			http.NotFound(w, r)
			return
		}
		r = r.WithContext(ContextWithResourceID(r.Context(), id))
		switch sub {
		case "":
			switch r.Method {
			case http.MethodGet:
				handler.Get(w, r)
			case http.MethodPut:
				handler.Update(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut)
			}
		case "attendants":
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			handler.AvailableAttendants(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func registerAttendantRoutes(mux *http.ServeMux, handler *AttendantHandler) {
	if handler == nil {
		return
	}
	mux.HandleFunc("/api/attendants", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handler.List(w, r)
		case http.MethodPost:
			handler.Create(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	})
	mux.HandleFunc("/api/attendants/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/attendants/")
		if id == "" || strings.Contains(id, "/") {
			http.NotFound(w, r)
			return
		}
		r = r.WithContext(ContextWithResourceID(r.Context(), id))
		switch r.Method {
		case http.MethodGet:
			handler.Get(w, r)
		case http.MethodPut:
			handler.Update(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPut)
		}
	})
}

func registerAssignmentRoutes(mux *http.ServeMux, handler *AssignmentHandler) {
	if handler == nil {
		return
	}
	mux.HandleFunc("/api/assignments", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handler.List(w, r)
		case http.MethodPost:
			handler.Create(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	})
	mux.HandleFunc("/api/assignments/conflicts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		handler.CheckConflicts(w, r)
	})
	mux.HandleFunc("/api/assignments/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/assignments/")
		if id == "" || strings.Contains(id, "/") {
			http.NotFound(w, r)
			return
		}
		r = r.WithContext(ContextWithResourceID(r.Context(), id))
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, http.MethodDelete)
			return
		}
		handler.Delete(w, r)
	})
}

func registerCountRoutes(mux *http.ServeMux, handler *CountHandler) {
	if handler == nil {
		return
	}
	mux.HandleFunc("/api/counts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handler.List(w, r)
		case http.MethodPost:
			handler.Create(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	})
	mux.HandleFunc("/api/counts/generate-name", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		handler.GenerateName(w, r)
	})
	mux.HandleFunc("/api/counts/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/counts/")
		id, sub := splitResourcePath(rest)
		if id == "" {
			http.NotFound(w, r)
			return
		}
		r = r.WithContext(ContextWithResourceID(r.Context(), id))
		switch sub {
		case "":
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			handler.Get(w, r)
		case "positions":
			switch r.Method {
			case http.MethodGet:
				handler.ListPositions(w, r)
			case http.MethodPost:
				handler.RecordPosition(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		default:
			http.NotFound(w, r)
		}
	})
}

func registerAdminRoutes(mux *http.ServeMux, handler *UserHandler, logger *slog.Logger) {
	if handler == nil {
		return
	}
	requireAdmin := RequireRole(application.RoleAdmin, logger)

	mux.Handle("/api/admin/users", requireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handler.List(w, r)
		case http.MethodPost:
			handler.Create(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	})))
	mux.Handle("/api/admin/users/", requireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/admin/users/")
		id, sub := splitResourcePath(rest)
		if id == "" {
			http.NotFound(w, r)
			return
		}
		r = r.WithContext(ContextWithResourceID(r.Context(), id))
		switch sub {
		case "":
			if r.Method != http.MethodPut {
				methodNotAllowed(w, http.MethodPut)
				return
			}
			handler.Update(w, r)
		case "invitation":
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			handler.ResendInvitation(w, r)
		default:
			http.NotFound(w, r)
		}
	})))
}

// splitResourcePath separates "{id}" or "{id}/{subresource}".
func splitResourcePath(rest string) (id, sub string) {
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", ""
	}
	parts := strings.SplitN(rest, "/", 2)
	id = parts[0]
	if len(parts) == 2 {
		sub = parts[1]
	}
	return id, sub
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
