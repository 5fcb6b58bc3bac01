package api

import (
	"net/http"
	"strconv"

	"devspace-operator/dtos"
	"devspace-operator/version"
)

// InitApi starts the operator API. Routes map 1:1 to the lifecycle and
// tenant operations; authentication happens upstream.
func InitApi() {
	mux := NewMux()

	port := config.Get("DSO_API_PORT")
	httpLogger.Info("Starting API server...", "port", port)
	err := http.ListenAndServe(":"+port, mux)
	if err != nil {
		httpLogger.Error("failed to start api server", "error", err)
	}
}

// NewMux builds the route table. Split from InitApi so tests can drive
// the handlers through httptest without binding a port.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()

	handle := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, withRequestLogging(handler))
	}

	handle("GET /healthz", getHealthz)

	handle("POST /workspaces", postWorkspace)
	handle("GET /workspaces", getWorkspaces)
	handle("GET /workspaces/{id}", getWorkspace)
	handle("PATCH /workspaces/{id}", patchWorkspace)
	handle("DELETE /workspaces/{id}", deleteWorkspace)
	handle("POST /workspaces/{id}/actions", postWorkspaceAction)
	handle("POST /workspaces/{id}/sync", postWorkspaceSync)
	handle("GET /workspaces/{id}/metrics", getWorkspaceMetrics)
	handle("GET /workspaces/{id}/logs", getWorkspaceLogs)
	handle("GET /workspaces/{id}/health", getWorkspaceHealth)

	handle("POST /groups", postGroup)
	handle("GET /groups", getGroups)
	handle("GET /groups/{id}", getGroup)
	handle("PATCH /groups/{id}", patchGroup)
	handle("DELETE /groups/{id}", deleteGroup)
	handle("GET /groups/{id}/members", getMembers)
	handle("POST /groups/{id}/members", postMember)
	handle("PUT /groups/{id}/members/{userId}", putMemberRole)
	handle("DELETE /groups/{id}/members/{userId}", deleteMember)

	handle("POST /users", postUser)
	handle("GET /users", getUsers)
	handle("GET /users/{id}", getUser)

	return mux
}

func getHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJson(w, http.StatusOK, map[string]string{
		"version": version.Ver,
		"branch":  version.Branch,
		"hash":    version.GitCommitHash,
		"buildAt": version.BuildTimestamp,
	})
}

func postWorkspace(w http.ResponseWriter, r *http.Request) {
	var request dtos.WorkspaceCreateRequest
	if err := decodeBody(r, &request); err != nil {
		writeError(w, err)
		return
	}
	workspace, err := lifecycle.CreateWorkspace(r.Context(), callerId(r), request)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusCreated, workspace)
}

func getWorkspaces(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := dtos.WorkspaceListFilter{
		UserId:  query.Get("userId"),
		GroupId: query.Get("groupId"),
	}
	filter.Offset, _ = strconv.Atoi(query.Get("offset"))
	filter.Limit, _ = strconv.Atoi(query.Get("limit"))

	workspaces, err := lifecycle.ListWorkspaces(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, workspaces)
}

func getWorkspace(w http.ResponseWriter, r *http.Request) {
	workspace, err := lifecycle.GetWorkspace(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, workspace)
}

func patchWorkspace(w http.ResponseWriter, r *http.Request) {
	var request dtos.WorkspaceUpdateRequest
	if err := decodeBody(r, &request); err != nil {
		writeError(w, err)
		return
	}
	workspace, err := lifecycle.UpdateWorkspace(r.Context(), r.PathValue("id"), request)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, workspace)
}

func deleteWorkspace(w http.ResponseWriter, r *http.Request) {
	err := lifecycle.DeleteWorkspace(r.Context(), callerId(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func postWorkspaceAction(w http.ResponseWriter, r *http.Request) {
	var request dtos.WorkspaceActionRequest
	if err := decodeBody(r, &request); err != nil {
		writeError(w, err)
		return
	}
	workspace, err := lifecycle.PerformAction(r.Context(), r.PathValue("id"), request.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, workspace)
}

func postWorkspaceSync(w http.ResponseWriter, r *http.Request) {
	workspace, err := lifecycle.SyncWorkspace(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, workspace)
}

func getWorkspaceMetrics(w http.ResponseWriter, r *http.Request) {
	usage, err := lifecycle.GetMetrics(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, usage)
}

func getWorkspaceLogs(w http.ResponseWriter, r *http.Request) {
	lineCount, err := strconv.ParseInt(r.URL.Query().Get("lines"), 10, 64)
	if err != nil || lineCount <= 0 {
		lineCount = 200
	}
	logs, err := lifecycle.GetLogs(r.Context(), r.PathValue("id"), lineCount)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(logs)); err != nil {
		httpLogger.Error("failed to write response", "error", err)
	}
}

func getWorkspaceHealth(w http.ResponseWriter, r *http.Request) {
	report, err := lifecycle.GetComponentHealth(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, report)
}

func postGroup(w http.ResponseWriter, r *http.Request) {
	var request dtos.GroupCreateRequest
	if err := decodeBody(r, &request); err != nil {
		writeError(w, err)
		return
	}
	group, err := tenants.CreateGroup(r.Context(), request)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusCreated, group)
}

func getGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := tenants.ListGroups(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, groups)
}

func getGroup(w http.ResponseWriter, r *http.Request) {
	group, err := tenants.GetGroup(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, group)
}

func patchGroup(w http.ResponseWriter, r *http.Request) {
	var request dtos.GroupUpdateRequest
	if err := decodeBody(r, &request); err != nil {
		writeError(w, err)
		return
	}
	group, err := tenants.UpdateGroup(r.Context(), r.PathValue("id"), request)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, group)
}

func deleteGroup(w http.ResponseWriter, r *http.Request) {
	err := tenants.DeleteGroup(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func getMembers(w http.ResponseWriter, r *http.Request) {
	members, err := tenants.ListMembers(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, members)
}

func postMember(w http.ResponseWriter, r *http.Request) {
	var request dtos.MembershipRequest
	if err := decodeBody(r, &request); err != nil {
		writeError(w, err)
		return
	}
	membership, err := tenants.AddMember(r.Context(), r.PathValue("id"), request)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusCreated, membership)
}

func putMemberRole(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Role dtos.GroupRole `json:"role"`
	}
	if err := decodeBody(r, &request); err != nil {
		writeError(w, err)
		return
	}
	membership, err := tenants.SetRole(r.Context(), r.PathValue("id"), r.PathValue("userId"), request.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, membership)
}

func deleteMember(w http.ResponseWriter, r *http.Request) {
	err := tenants.RemoveMember(r.Context(), r.PathValue("id"), r.PathValue("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func postUser(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Email         string `json:"email"`
		DisplayName   string `json:"displayName"`
		PlatformAdmin bool   `json:"platformAdmin"`
	}
	if err := decodeBody(r, &request); err != nil {
		writeError(w, err)
		return
	}
	user, err := tenants.CreateUser(r.Context(), request.Email, request.DisplayName, request.PlatformAdmin)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusCreated, user)
}

func getUsers(w http.ResponseWriter, r *http.Request) {
	users, err := tenants.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, users)
}

func getUser(w http.ResponseWriter, r *http.Request) {
	user, err := tenants.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJson(w, http.StatusOK, user)
}
