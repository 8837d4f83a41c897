package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"testing"

	"hill-valley/internal/access"
	"hill-valley/internal/db"
)

// 1x1 transparent PNG.
var testPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

const testPassword = "flux-capacitor"

func (a *testApp) do(t *testing.T, client *http.Client, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()
	var body io.Reader = bytes.NewReader(nil)
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, a.ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func (a *testApp) request(t *testing.T, method, path string, payload any) *http.Response {
	t.Helper()
	return a.do(t, a.client, method, path, payload, nil)
}

type uploadFile struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

func (a *testApp) upload(t *testing.T, client *http.Client, path string, fields map[string]string, file *uploadFile, headers map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if file != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="`+file.Field+`"; filename="`+file.Filename+`"`)
		if file.ContentType != "" {
			header.Set("Content-Type", file.ContentType)
		}
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, a.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected status %d, got %d: %s", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, data)
	}
}

func expectError(t *testing.T, resp *http.Response, want int, message string) {
	t.Helper()
	expectStatus(t, resp, want)
	body := decodeBody(t, resp)
	if body["error"] != message {
		t.Fatalf("expected error %q, got %#v", message, body["error"])
	}
}

func seedQuestions(t *testing.T, a *testApp, levels, perLevel int) []db.Question {
	t.Helper()
	var questions []db.Question
	for level := 1; level <= levels; level++ {
		for i := 0; i < perLevel; i++ {
			q := db.Question{
				Level:        level,
				Text:         "Question " + strconv.Itoa(level) + "." + strconv.Itoa(i),
				Options:      []string{"Doc", "Marty", "Biff"},
				CorrectIndex: 1,
				Points:       level,
				Position:     i,
			}
			if err := a.db.Create(&q).Error; err != nil {
				t.Fatalf("create question: %v", err)
			}
			questions = append(questions, q)
		}
	}
	return questions
}

func seedAccessCode(t *testing.T, a *testApp, code, purpose string, maxUses int) db.AccessCode {
	t.Helper()
	record := db.AccessCode{Code: access.Normalize(code), Purpose: purpose, Active: true, MaxUses: maxUses}
	if err := a.db.Create(&record).Error; err != nil {
		t.Fatalf("create access code: %v", err)
	}
	return record
}

func seedAdmin(t *testing.T, a *testApp, email, role string) db.AdminUser {
	t.Helper()
	hash, err := hashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := db.AdminUser{Email: email, PasswordHash: hash, Role: role, Active: true}
	if err := a.db.Create(&user).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return user
}

// loginAs seeds an account and returns a client holding its session cookie.
func loginAs(t *testing.T, a *testApp, email, role string) *http.Client {
	t.Helper()
	seedAdmin(t, a, email, role)
	client := newClient(t)
	resp := a.do(t, client, http.MethodPost, "/api/admin/login", map[string]string{
		"email":    email,
		"password": testPassword,
	}, nil)
	expectStatus(t, resp, http.StatusOK)
	return client
}

type joined struct {
	GameID        int
	ParticipantID int
	JoinCode      string
	Token         string
}

func (j joined) sessionPath(suffix string) string {
	return "/api/trivia/games/" + strconv.Itoa(j.GameID) + "/participants/" + strconv.Itoa(j.ParticipantID) + suffix
}

func (j joined) headers() map[string]string {
	return map[string]string{headerParticipantToken: j.Token}
}

func matchTrivia(t *testing.T, a *testApp, name string) joined {
	t.Helper()
	resp := a.request(t, http.MethodPost, "/api/trivia/match", map[string]string{"name": name})
	expectStatus(t, resp, http.StatusOK)
	return parseJoined(t, decodeBody(t, resp))
}

func parseJoined(t *testing.T, body map[string]any) joined {
	t.Helper()
	game, ok := body["game"].(map[string]any)
	if !ok {
		t.Fatalf("expected game object, got %#v", body["game"])
	}
	participant, ok := body["participant"].(map[string]any)
	if !ok {
		t.Fatalf("expected participant object, got %#v", body["participant"])
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("expected participant token")
	}
	return joined{
		GameID:        int(game["id"].(float64)),
		ParticipantID: int(participant["id"].(float64)),
		JoinCode:      game["join_code"].(string),
		Token:         token,
	}
}
