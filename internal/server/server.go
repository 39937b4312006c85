package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"taskline/internal/access"
	"taskline/internal/repo"
	"taskline/internal/service"
)

// Config for the HTTP API handler.
type Config struct {
	Service  service.Service
	BasePath string
	Auth     AuthConfig
	Logger   *log.Logger
}

// apiError models the error envelope: success is always false, message is
// caller-facing, code is machine-readable.
type apiError struct {
	status  int
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Message }

// New returns an HTTP handler exposing the Taskline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the success envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			// Schema/request validation errors surface as 400.
			status = http.StatusBadRequest
		}
		return newAPIError(status, "", msg)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Service.Repo))
	hcfg := huma.DefaultConfig("Taskline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerLists(group, cfg.Service)
	registerMembers(group, cfg.Service)
	registerTasks(group, cfg.Service)
	registerEvents(group, cfg.Service)
	registerMe(group, cfg.Service)
	registerOpenAPI(router, api, basePath)

	serverLog = logger
	return router, nil
}

// serverLog backs handleError's 500 path, where the detail is logged
// rather than leaked to the caller.
var serverLog = log.Default()

func newAPIError(status int, code, message string) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status:  status,
		Success: false,
		Message: message,
		Code:    code,
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ve access.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "validation_failed", err.Error())
	}
	if errors.Is(err, access.ErrNoFields) {
		return newAPIError(http.StatusBadRequest, "no_fields", err.Error())
	}
	var fe access.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error())
	}
	var ce access.ConflictError
	if errors.As(err, &ce) {
		return newAPIError(http.StatusConflict, ce.Reason, err.Error())
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error())
	}
	serverLog.Error("request failed", "err", err)
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error")
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Taskline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerMe(api huma.API, s service.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current user",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body MeResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := s.Repo.GetUser(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MeResponse `json:"body"`
		}{Body: MeResponse{Success: true, User: u}}, nil
	})
}

func registerLists(api huma.API, s service.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-list",
		Method:        http.MethodPost,
		Path:          "/collab_lists",
		Summary:       "Create collaborative list",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateListRequest `json:"body"`
	}) (*struct {
		Body ListResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		l, err := s.CreateList(ctx, input.Body.Name, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ListResponse `json:"body"`
		}{Body: ListResponse{
			Success: true,
			Message: fmt.Sprintf("List %q created", l.Name),
			List: ListPayload{
				ID:          l.ID,
				Name:        l.Name,
				OwnerID:     userID,
				IsOwner:     true,
				MemberCount: 1,
				CreatedAt:   l.CreatedAt,
				UpdatedAt:   l.UpdatedAt,
			},
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-lists",
		Method:      http.MethodGet,
		Path:        "/collab_lists",
		Summary:     "Lists the user owns or belongs to",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ListsResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		summaries, err := s.ListsForUser(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		lists := make([]ListPayload, 0, len(summaries))
		for _, sum := range summaries {
			lists = append(lists, listPayload(sum))
		}
		return &struct {
			Body ListsResponse `json:"body"`
		}{Body: ListsResponse{Success: true, Lists: lists}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-list",
		Method:      http.MethodGet,
		Path:        "/collab_lists/{list_id}",
		Summary:     "Get list with members",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ListID string `path:"list_id"`
	}) (*struct {
		Body ListDetailResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		la, err := s.EnsureListAccess(ctx, input.ListID, userID, false)
		if err != nil {
			return nil, handleError(err)
		}
		members, err := s.Members(ctx, input.ListID, userID)
		if err != nil {
			return nil, handleError(err)
		}
		payload := ListPayload{
			ID:          la.List.ID,
			Name:        la.List.Name,
			IsOwner:     la.IsOwner,
			MemberCount: len(members),
			CreatedAt:   la.List.CreatedAt,
			UpdatedAt:   la.List.UpdatedAt,
		}
		for _, m := range members {
			if m.Role == "owner" {
				payload.OwnerID = m.UserID
				payload.OwnerName = m.Name
				break
			}
		}
		return &struct {
			Body ListDetailResponse `json:"body"`
		}{Body: ListDetailResponse{
			Success: true,
			List:    payload,
			Members: mapMembers(members),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rename-list",
		Method:      http.MethodPut,
		Path:        "/collab_lists/{list_id}",
		Summary:     "Rename list",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ListID string            `path:"list_id"`
		Body   RenameListRequest `json:"body"`
	}) (*struct {
		Body ListResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		l, err := s.RenameList(ctx, input.ListID, userID, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ListResponse `json:"body"`
		}{Body: ListResponse{
			Success: true,
			Message: fmt.Sprintf("List renamed to %q", l.Name),
			List: ListPayload{
				ID:        l.ID,
				Name:      l.Name,
				OwnerID:   userID,
				IsOwner:   true,
				CreatedAt: l.CreatedAt,
				UpdatedAt: l.UpdatedAt,
			},
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-list",
		Method:      http.MethodDelete,
		Path:        "/collab_lists/{list_id}",
		Summary:     "Delete list",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ListID string `path:"list_id"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := s.DeleteList(ctx, input.ListID, userID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Success: true, Message: "List deleted"}}, nil
	})
}

func registerMembers(api huma.API, s service.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-member",
		Method:        http.MethodPost,
		Path:          "/collab_lists/{list_id}/members",
		Summary:       "Add member",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ListID string           `path:"list_id"`
		Body   AddMemberRequest `json:"body"`
	}) (*struct {
		Body MemberResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := s.AddMember(ctx, input.ListID, userID, input.Body.UsernameOrEmail)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MemberResponse `json:"body"`
		}{Body: MemberResponse{
			Success: true,
			Message: fmt.Sprintf("%s added to the list", m.Username),
			Member:  memberPayload(m),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-member",
		Method:      http.MethodDelete,
		Path:        "/collab_lists/{list_id}/members/{user_id}",
		Summary:     "Remove member",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ListID string `path:"list_id"`
		UserID string `path:"user_id"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := s.RemoveMember(ctx, input.ListID, userID, input.UserID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Success: true, Message: "Member removed"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-members",
		Method:      http.MethodGet,
		Path:        "/collab_lists/{list_id}/members",
		Summary:     "List members",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ListID string `path:"list_id"`
	}) (*struct {
		Body MembersResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		members, err := s.Members(ctx, input.ListID, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MembersResponse `json:"body"`
		}{Body: MembersResponse{Success: true, Members: mapMembers(members)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-list-tasks",
		Method:      http.MethodGet,
		Path:        "/collab_lists/{list_id}/tasks",
		Summary:     "Tasks in a list",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ListID          string `path:"list_id"`
		Status          string `query:"status"`
		Priority        string `query:"priority"`
		IncludeArchived bool   `query:"include_archived"`
		ArchivedOnly    bool   `query:"archived_only"`
	}) (*struct {
		Body TasksResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		tasks, err := s.Tasks(ctx, userID, service.TaskQuery{
			CollabListID:    input.ListID,
			Status:          input.Status,
			Priority:        input.Priority,
			IncludeArchived: input.IncludeArchived,
			ArchivedOnly:    input.ArchivedOnly,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TasksResponse `json:"body"`
		}{Body: TasksResponse{Success: true, Tasks: mapTasks(tasks), Count: len(tasks)}}, nil
	})
}

func registerTasks(api huma.API, s service.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := s.CreateTask(ctx, service.TaskCreateOptions{
			OwnerUserID:  userID,
			Title:        input.Body.Title,
			Description:  stringOrEmpty(input.Body.Description),
			Priority:     stringOrEmpty(input.Body.Priority),
			Status:       stringOrEmpty(input.Body.Status),
			DueDate:      stringOrEmpty(input.Body.DueDate),
			CollabListID: stringOrEmpty(input.Body.CollabListID),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: TaskResponse{
			Success: true,
			Message: fmt.Sprintf("Task %q created", t.Title),
			Task:    taskPayload(t),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		CollabListID    string `query:"collab_list_id"`
		Status          string `query:"status"`
		Priority        string `query:"priority"`
		Search          string `query:"search"`
		IncludeArchived bool   `query:"include_archived"`
		ArchivedOnly    bool   `query:"archived_only"`
	}) (*struct {
		Body TasksResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		tasks, err := s.Tasks(ctx, userID, service.TaskQuery{
			CollabListID:    input.CollabListID,
			Status:          input.Status,
			Priority:        input.Priority,
			Search:          input.Search,
			IncludeArchived: input.IncludeArchived,
			ArchivedOnly:    input.ArchivedOnly,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TasksResponse `json:"body"`
		}{Body: TasksResponse{Success: true, Tasks: mapTasks(tasks), Count: len(tasks)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := s.GetTask(ctx, input.ID, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: TaskResponse{Success: true, Task: taskPayload(t)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}",
		Summary:     "Update task",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := s.UpdateTask(ctx, input.ID, userID, service.TaskUpdate{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Priority:    input.Body.Priority,
			Status:      input.Body.Status,
			DueDate:     input.Body.DueDate,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: TaskResponse{
			Success: true,
			Message: "Task updated",
			Task:    taskPayload(t),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-task-status",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}/status",
		Summary:     "Update task status",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body SetTaskStatusRequest `json:"body"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := s.SetTaskStatus(ctx, input.ID, userID, input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: TaskResponse{
			Success: true,
			Message: fmt.Sprintf("Status set to %s", t.Status),
			Task:    taskPayload(t),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/archive",
		Summary:     "Archive task",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := s.SetTaskArchived(ctx, input.ID, userID, true)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: TaskResponse{
			Success: true,
			Message: "Task archived",
			Task:    taskPayload(t),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unarchive-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/unarchive",
		Summary:     "Unarchive task",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := s.SetTaskArchived(ctx, input.ID, userID, false)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: TaskResponse{
			Success: true,
			Message: "Task unarchived",
			Task:    taskPayload(t),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Delete task",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := s.DeleteTask(ctx, input.ID, userID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Success: true, Message: "Task deleted"}}, nil
	})
}

func registerEvents(api huma.API, s service.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Audit event log",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Limit  int    `query:"limit" default:"100"`
		ListID string `query:"list_id"`
		Type   string `query:"type"`
		UserID string `query:"user_id"`
	}) (*struct {
		Body EventsResponse `json:"body"`
	}, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := s.Repo.LatestEvents(ctx, input.Limit, input.ListID, input.Type, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		events := make([]EventPayload, 0, len(items))
		for _, e := range items {
			events = append(events, eventPayload(e))
		}
		return &struct {
			Body EventsResponse `json:"body"`
		}{Body: EventsResponse{Success: true, Events: events}}, nil
	})
}
