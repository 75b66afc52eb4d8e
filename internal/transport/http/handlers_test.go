package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"testing"
)

func (e *testEnv) doJSON(t *testing.T, method, path, token string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	env := startTestServer(t)

	token := env.registerUser(t, "alice", "password1")
	if token == "" {
		t.Fatalf("expected token from register")
	}

	// Duplicate registration conflicts.
	resp := env.doJSON(t, "POST", "/api/register", "", RegisterRequest{Username: "alice", Password: "password1"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate register, got %d", resp.StatusCode)
	}

	resp = env.doJSON(t, "POST", "/api/login", "", LoginRequest{Username: "alice", Password: "password1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on login, got %d", resp.StatusCode)
	}

	resp = env.doJSON(t, "POST", "/api/login", "", LoginRequest{Username: "alice", Password: "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 on bad password, got %d", resp.StatusCode)
	}
}

func TestGroupAndChannelEndpoints(t *testing.T) {
	env := startTestServer(t)
	token := env.registerUser(t, "alice", "password1")

	// Unauthenticated requests are rejected.
	resp := env.doJSON(t, "POST", "/api/groups", "", CreateGroupRequest{Name: "gophers"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp = env.doJSON(t, "POST", "/api/groups", token, CreateGroupRequest{Name: "gophers"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 on create group, got %d", resp.StatusCode)
	}
	var group GroupResponse
	if err := json.NewDecoder(resp.Body).Decode(&group); err != nil {
		t.Fatalf("decode group: %v", err)
	}

	resp = env.doJSON(t, "POST", "/api/groups/"+itoa(group.ID)+"/channels", token, CreateChannelRequest{Name: "general"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 on create channel, got %d", resp.StatusCode)
	}

	resp = env.doJSON(t, "GET", "/api/groups/"+itoa(group.ID)+"/channels", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on list channels, got %d", resp.StatusCode)
	}
	var channels []ChannelResponse
	if err := json.NewDecoder(resp.Body).Decode(&channels); err != nil {
		t.Fatalf("decode channels: %v", err)
	}
	if len(channels) != 1 || channels[0].Name != "general" {
		t.Fatalf("unexpected channels: %+v", channels)
	}

	// Non-members cannot create channels until they join.
	bobToken := env.registerUser(t, "bob", "password1")
	resp = env.doJSON(t, "POST", "/api/groups/"+itoa(group.ID)+"/channels", bobToken, CreateChannelRequest{Name: "random"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-member, got %d", resp.StatusCode)
	}

	resp = env.doJSON(t, "POST", "/api/groups/"+itoa(group.ID)+"/join", bobToken, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 on join, got %d", resp.StatusCode)
	}
	resp = env.doJSON(t, "POST", "/api/groups/"+itoa(group.ID)+"/channels", bobToken, CreateChannelRequest{Name: "random"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 after joining, got %d", resp.StatusCode)
	}

	resp = env.doJSON(t, "GET", "/api/groups", bobToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on list groups, got %d", resp.StatusCode)
	}
	var groups []GroupResponse
	if err := json.NewDecoder(resp.Body).Decode(&groups); err != nil {
		t.Fatalf("decode groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "gophers" {
		t.Fatalf("unexpected groups: %+v", groups)
	}
}

func TestUserSearch(t *testing.T) {
	env := startTestServer(t)
	aliceToken := env.registerUser(t, "alice", "password1")
	env.registerUser(t, "alicia", "password1")
	env.registerUser(t, "bob", "password1")

	resp := env.doJSON(t, "GET", "/api/users/search?q=ali", aliceToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on search, got %d", resp.StatusCode)
	}
	var users []UserResponse
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	// The searcher is excluded from results.
	if len(users) != 1 || users[0].Username != "alicia" {
		t.Fatalf("unexpected search results: %+v", users)
	}

	resp = env.doJSON(t, "GET", "/api/users/search?q=a", aliceToken, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for short query, got %d", resp.StatusCode)
	}
}

func TestAvatarUpload(t *testing.T) {
	env := startTestServer(t)
	token := env.registerUser(t, "alice", "password1")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("avatar", "me.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("fake-png-bytes")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = w.Close()

	req, err := http.NewRequest("POST", env.ts.URL+"/api/uploads/avatar", &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := env.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("upload avatar: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on upload, got %d", resp.StatusCode)
	}
	var upload UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if upload.URL == "" {
		t.Fatalf("expected upload URL")
	}

	// The user record carries the new avatar.
	user, err := env.store.GetUserByUsername(t.Context(), "alice")
	if err != nil {
		t.Fatalf("lookup user: %v", err)
	}
	if user.AvatarURL != upload.URL {
		t.Fatalf("avatar not persisted: %q vs %q", user.AvatarURL, upload.URL)
	}

	// The stored file is served back.
	fileResp, err := env.ts.Client().Get(env.ts.URL + upload.URL)
	if err != nil {
		t.Fatalf("fetch upload: %v", err)
	}
	defer fileResp.Body.Close()
	if fileResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 fetching upload, got %d", fileResp.StatusCode)
	}
	data, _ := io.ReadAll(fileResp.Body)
	if string(data) != "fake-png-bytes" {
		t.Fatalf("unexpected file contents: %q", data)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
