package server

import (
	"bytes"
	"net/http"
	"strconv"
	"testing"
	"time"

	"hill-valley/internal/access"
	"hill-valley/internal/config"
	"hill-valley/internal/db"
	"hill-valley/internal/voting"
)

func seedCostume(t *testing.T, a *testApp, name string, approved bool) db.Costume {
	t.Helper()
	costume := db.Costume{Name: name, WearerName: "Guest", Approved: approved}
	if err := a.db.Create(&costume).Error; err != nil {
		t.Fatalf("create costume: %v", err)
	}
	return costume
}

func openWindow(t *testing.T, a *testApp, admin *http.Client, length time.Duration) {
	t.Helper()
	now := a.clock.Now()
	resp := a.do(t, admin, http.MethodPut, "/api/admin/voting/window", map[string]any{
		"starts_at": now.Add(-time.Minute),
		"ends_at":   now.Add(length),
	}, nil)
	expectStatus(t, resp, http.StatusOK)
	if state := decodeBody(t, resp)["state"]; state != string(voting.StateOpen) {
		t.Fatalf("expected open window, got %#v", state)
	}
}

func TestVotingWindowEnforced(t *testing.T) {
	app := newTestApp(t, nil)
	delorean := seedCostume(t, app, "DeLorean", true)
	doc := seedCostume(t, app, "Doc Brown", true)
	hidden := seedCostume(t, app, "Jaws 19", false)

	resp := app.request(t, http.MethodPost, "/api/voting/vote", map[string]any{"costume_id": delorean.ID})
	expectStatus(t, resp, http.StatusForbidden)
	if body := decodeBody(t, resp); body["state"] != string(voting.StateUnscheduled) {
		t.Fatalf("expected unscheduled state, got %#v", body["state"])
	}

	admin := loginAs(t, app, "strickland@hillvalley.test", db.RoleAdmin)
	openWindow(t, app, admin, time.Hour)

	resp = app.request(t, http.MethodPost, "/api/voting/vote", map[string]any{"costume_id": hidden.ID})
	expectError(t, resp, http.StatusNotFound, "costume not found")

	resp = app.request(t, http.MethodPost, "/api/voting/vote", map[string]any{"costume_id": delorean.ID})
	expectStatus(t, resp, http.StatusOK)

	resp = app.request(t, http.MethodPost, "/api/voting/vote", map[string]any{"costume_id": doc.ID})
	expectStatus(t, resp, http.StatusConflict)
	if body := decodeBody(t, resp); body["current_costume_id"] != float64(delorean.ID) {
		t.Fatalf("expected current vote %d, got %#v", delorean.ID, body["current_costume_id"])
	}

	resp = app.request(t, http.MethodPost, "/api/voting/vote", map[string]any{"costume_id": doc.ID, "confirm_change": true})
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["changed"] != true {
		t.Fatalf("expected changed vote, got %#v", body)
	}

	resp = app.request(t, http.MethodGet, "/api/voting/vote", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["costume_id"] != float64(doc.ID) {
		t.Fatalf("expected stored vote for %d, got %#v", doc.ID, body["costume_id"])
	}

	resp = app.request(t, http.MethodDelete, "/api/voting/vote", nil)
	expectStatus(t, resp, http.StatusOK)
	resp = app.request(t, http.MethodDelete, "/api/voting/vote", nil)
	expectError(t, resp, http.StatusNotFound, "no vote to retract")

	resp = app.request(t, http.MethodPost, "/api/voting/vote", map[string]any{"costume_id": doc.ID})
	expectStatus(t, resp, http.StatusOK)
	other := newClient(t)
	resp = app.do(t, other, http.MethodPost, "/api/voting/vote", map[string]any{"costume_id": doc.ID}, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = app.request(t, http.MethodGet, "/api/voting/results", nil)
	expectError(t, resp, http.StatusForbidden, "results are not available")

	resp = app.do(t, admin, http.MethodGet, "/api/admin/voting/results", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	if total := decodeBody(t, resp)["total_votes"]; total != float64(2) {
		t.Fatalf("expected 2 live votes, got %#v", total)
	}

	app.clock.Advance(2 * time.Hour)

	resp = app.request(t, http.MethodPost, "/api/voting/vote", map[string]any{"costume_id": delorean.ID, "confirm_change": true})
	expectStatus(t, resp, http.StatusForbidden)
	if body := decodeBody(t, resp); body["state"] != string(voting.StateClosed) {
		t.Fatalf("expected closed state, got %#v", body["state"])
	}

	resp = app.request(t, http.MethodGet, "/api/voting/results", nil)
	expectStatus(t, resp, http.StatusOK)
	results := decodeBody(t, resp)["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("expected results for the approved costumes only, got %d", len(results))
	}
	winner := results[0].(map[string]any)
	if winner["name"] != "Doc Brown" || winner["votes"] != float64(2) || winner["winner"] != true {
		t.Fatalf("expected Doc Brown to win, got %#v", winner)
	}

	resp = app.request(t, http.MethodGet, "/api/costumes", nil)
	expectStatus(t, resp, http.StatusOK)
	costumes := decodeBody(t, resp)["costumes"].([]any)
	for _, raw := range costumes {
		if _, ok := raw.(map[string]any)["votes"]; !ok {
			t.Fatalf("expected vote counts once results are ready")
		}
	}

	resp = app.do(t, admin, http.MethodDelete, "/api/admin/voting/votes", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	if deleted := decodeBody(t, resp)["deleted"]; deleted != float64(2) {
		t.Fatalf("expected 2 votes deleted, got %#v", deleted)
	}
}

func TestVotingWindowValidation(t *testing.T) {
	app := newTestApp(t, nil)
	admin := loginAs(t, app, "strickland@hillvalley.test", db.RoleEditor)
	now := app.clock.Now()

	resp := app.do(t, admin, http.MethodPut, "/api/admin/voting/window", map[string]any{
		"starts_at": now.Add(time.Hour),
		"ends_at":   now,
	}, nil)
	expectError(t, resp, http.StatusBadRequest, voting.ErrInvalidWindow.Error())

	resp = app.do(t, admin, http.MethodPut, "/api/admin/voting/window", map[string]any{
		"starts_at": now.Add(time.Hour),
	}, nil)
	expectStatus(t, resp, http.StatusOK)
	if state := decodeBody(t, resp)["state"]; state != string(voting.StateUpcoming) {
		t.Fatalf("expected upcoming, got %#v", state)
	}

	resp = app.do(t, admin, http.MethodDelete, "/api/admin/voting/window", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	if state := decodeBody(t, resp)["state"]; state != string(voting.StateUnscheduled) {
		t.Fatalf("expected unscheduled after clearing, got %#v", state)
	}
}

func TestCostumeSubmissionModeration(t *testing.T) {
	app := newTestApp(t, nil)

	resp := app.upload(t, app.client, "/api/costumes", map[string]string{"name": "Biff Tannen", "wearer_name": "Tom"}, nil, nil)
	expectError(t, resp, http.StatusBadRequest, errUploadMissing.Error())

	resp = app.upload(t, app.client, "/api/costumes", map[string]string{"name": "Biff Tannen", "wearer_name": "Tom"}, &uploadFile{
		Field:       "photo",
		Filename:    "biff.png",
		ContentType: "image/png",
		Data:        testPNG,
	}, nil)
	expectStatus(t, resp, http.StatusCreated)
	created := decodeBody(t, resp)
	if created["approved"] != false || created["photo_url"] == "" {
		t.Fatalf("expected pending costume with photo, got %#v", created)
	}
	id := int(created["id"].(float64))

	resp = app.request(t, http.MethodGet, created["photo_url"].(string), nil)
	expectStatus(t, resp, http.StatusOK)

	resp = app.request(t, http.MethodGet, "/api/costumes", nil)
	expectStatus(t, resp, http.StatusOK)
	if costumes := decodeBody(t, resp)["costumes"].([]any); len(costumes) != 0 {
		t.Fatalf("pending costumes must stay hidden, got %d", len(costumes))
	}

	admin := loginAs(t, app, "lorraine@hillvalley.test", db.RoleEditor)
	resp = app.do(t, admin, http.MethodGet, "/api/admin/costumes?status=pending", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	if costumes := decodeBody(t, resp)["costumes"].([]any); len(costumes) != 1 {
		t.Fatalf("expected 1 pending costume, got %d", len(costumes))
	}

	resp = app.do(t, admin, http.MethodPut, "/api/admin/costumes/"+idString(uint(id)), map[string]any{"approved": true}, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = app.request(t, http.MethodGet, "/api/costumes", nil)
	expectStatus(t, resp, http.StatusOK)
	costumes := decodeBody(t, resp)["costumes"].([]any)
	if len(costumes) != 1 || costumes[0].(map[string]any)["name"] != "Biff Tannen" {
		t.Fatalf("expected approved costume listed, got %#v", costumes)
	}

	resp = app.do(t, admin, http.MethodDelete, "/api/admin/costumes/"+idString(uint(id)), nil, nil)
	expectStatus(t, resp, http.StatusNoContent)
	resp = app.request(t, http.MethodGet, created["photo_url"].(string), nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestGuestbookUploads(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) { cfg.MaxVideoBytes = 4 << 10 })
	video := append([]byte{0x1a, 0x45, 0xdf, 0xa3}, bytes.Repeat([]byte{0}, 256)...)

	resp := app.upload(t, app.client, "/api/guestbook", map[string]string{"guest_name": "George", "message": "Hi"}, &uploadFile{
		Field: "video", Filename: "note.txt", ContentType: "text/plain", Data: []byte("hello"),
	}, nil)
	expectError(t, resp, http.StatusUnsupportedMediaType, "unsupported content type")

	resp = app.upload(t, app.client, "/api/guestbook", map[string]string{"guest_name": "George", "message": "Hi"}, &uploadFile{
		Field: "video", Filename: "big.webm", ContentType: "video/webm", Data: bytes.Repeat([]byte{1}, 16<<10),
	}, nil)
	expectError(t, resp, http.StatusRequestEntityTooLarge, errUploadTooLarge.Error())

	resp = app.upload(t, app.client, "/api/guestbook", map[string]string{"guest_name": "George", "message": "Where we're going"}, &uploadFile{
		Field: "video", Filename: "note.webm", ContentType: "video/webm", Data: video,
	}, nil)
	expectStatus(t, resp, http.StatusCreated)
	entry := decodeBody(t, resp)
	if entry["approved"] != false || entry["size_bytes"] != float64(len(video)) {
		t.Fatalf("unexpected guestbook entry %#v", entry)
	}

	resp = app.request(t, http.MethodGet, "/api/guestbook", nil)
	expectStatus(t, resp, http.StatusOK)
	if messages := decodeBody(t, resp)["messages"].([]any); len(messages) != 0 {
		t.Fatalf("unmoderated messages must stay hidden, got %d", len(messages))
	}

	admin := loginAs(t, app, "lorraine@hillvalley.test", db.RoleEditor)
	resp = app.do(t, admin, http.MethodPut, "/api/admin/guestbook/"+entry["id"].(string), map[string]any{"approved": true}, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = app.request(t, http.MethodGet, "/api/guestbook", nil)
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	messages := body["messages"].([]any)
	if len(messages) != 1 || messages[0].(map[string]any)["message"] != "Where we're going" {
		t.Fatalf("expected the approved message, got %#v", messages)
	}
	if pagination := body["pagination"].(map[string]any); pagination["total"] != float64(1) {
		t.Fatalf("expected total 1, got %#v", pagination["total"])
	}
}

func TestAdminLoginAndSignup(t *testing.T) {
	app := newTestApp(t, nil)
	seedAccessCode(t, app, "CREW", access.PurposeAdmin, 0)
	seedAccessCode(t, app, "PARTY", access.PurposeGuest, 0)

	resp := app.request(t, http.MethodGet, "/api/admin/me", nil)
	expectError(t, resp, http.StatusUnauthorized, "authentication required")

	resp = app.request(t, http.MethodPost, "/api/admin/login", map[string]string{"email": "nobody@hillvalley.test", "password": testPassword})
	expectError(t, resp, http.StatusUnauthorized, errInvalidCredentials.Error())

	resp = app.request(t, http.MethodPost, "/api/admin/signup", map[string]string{
		"email": "doc@hillvalley.test", "password": testPassword, "access_code": "party",
	})
	expectError(t, resp, http.StatusForbidden, access.ErrWrongPurpose.Error())

	first := newClient(t)
	resp = app.do(t, first, http.MethodPost, "/api/admin/signup", map[string]string{
		"email": "Doc@HillValley.test", "password": testPassword, "access_code": "crew",
	}, nil)
	expectStatus(t, resp, http.StatusCreated)
	user := decodeBody(t, resp)["user"].(map[string]any)
	if user["role"] != db.RoleAdmin || user["email"] != "doc@hillvalley.test" {
		t.Fatalf("expected first account to be an admin, got %#v", user)
	}

	resp = app.do(t, newClient(t), http.MethodPost, "/api/admin/signup", map[string]string{
		"email": "doc@hillvalley.test", "password": testPassword, "access_code": "CREW",
	}, nil)
	expectError(t, resp, http.StatusConflict, "an account with that email already exists")

	second := newClient(t)
	resp = app.do(t, second, http.MethodPost, "/api/admin/signup", map[string]string{
		"email": "marty@hillvalley.test", "password": testPassword, "access_code": "CREW",
	}, nil)
	expectStatus(t, resp, http.StatusCreated)
	if role := decodeBody(t, resp)["user"].(map[string]any)["role"]; role != db.RoleEditor {
		t.Fatalf("expected later accounts to be editors, got %#v", role)
	}

	resp = app.do(t, second, http.MethodGet, "/api/admin/users", nil, nil)
	expectError(t, resp, http.StatusForbidden, "insufficient role")
	resp = app.do(t, second, http.MethodGet, "/api/admin/stats", nil, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = app.do(t, first, http.MethodGet, "/api/admin/users", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	if users := decodeBody(t, resp)["users"].([]any); len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}

	resp = app.do(t, first, http.MethodPost, "/api/admin/logout", nil, nil)
	expectStatus(t, resp, http.StatusNoContent)
	resp = app.do(t, first, http.MethodGet, "/api/admin/me", nil, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestLastAdminProtection(t *testing.T) {
	app := newTestApp(t, nil)
	admin := loginAs(t, app, "doc@hillvalley.test", db.RoleAdmin)

	resp := app.do(t, admin, http.MethodGet, "/api/admin/me", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	selfID := decodeBody(t, resp)["user"].(map[string]any)["id"].(string)

	resp = app.do(t, admin, http.MethodPut, "/api/admin/users/"+selfID, map[string]any{"role": db.RoleEditor}, nil)
	expectError(t, resp, http.StatusConflict, errLastAdmin.Error())
	resp = app.do(t, admin, http.MethodPut, "/api/admin/users/"+selfID, map[string]any{"active": false}, nil)
	expectError(t, resp, http.StatusConflict, errLastAdmin.Error())
	resp = app.do(t, admin, http.MethodDelete, "/api/admin/users/"+selfID, nil, nil)
	expectError(t, resp, http.StatusConflict, "you cannot delete your own account")

	resp = app.do(t, admin, http.MethodPost, "/api/admin/users", map[string]any{
		"email": "jennifer@hillvalley.test", "password": "short", "role": db.RoleAdmin,
	}, nil)
	expectStatus(t, resp, http.StatusBadRequest)

	resp = app.do(t, admin, http.MethodPost, "/api/admin/users", map[string]any{
		"email": "jennifer@hillvalley.test", "password": testPassword, "role": db.RoleAdmin,
	}, nil)
	expectStatus(t, resp, http.StatusCreated)
	otherID := decodeBody(t, resp)["id"].(string)

	resp = app.do(t, admin, http.MethodPut, "/api/admin/users/"+otherID, map[string]any{"role": db.RoleEditor}, nil)
	expectStatus(t, resp, http.StatusOK)
	resp = app.do(t, admin, http.MethodDelete, "/api/admin/users/"+otherID, nil, nil)
	expectStatus(t, resp, http.StatusNoContent)
	resp = app.do(t, admin, http.MethodDelete, "/api/admin/users/"+otherID, nil, nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestAdminQuestions(t *testing.T) {
	app := newTestApp(t, nil)
	admin := loginAs(t, app, "doc@hillvalley.test", db.RoleEditor)

	question := map[string]any{
		"level":         1,
		"text":          "What powers the flux capacitor?",
		"options":       []string{"Plutonium", "Gasoline"},
		"correct_index": 0,
		"category":      "science",
	}
	resp := app.do(t, admin, http.MethodPost, "/api/admin/questions", question, nil)
	expectStatus(t, resp, http.StatusCreated)
	created := decodeBody(t, resp)
	if created["points"] != float64(1) {
		t.Fatalf("expected default of 1 point, got %#v", created["points"])
	}
	id := idString(uint(created["id"].(float64)))

	resp = app.do(t, admin, http.MethodPost, "/api/admin/questions", question, nil)
	expectStatus(t, resp, http.StatusConflict)

	question["correct_index"] = 5
	resp = app.do(t, admin, http.MethodPost, "/api/admin/questions", question, nil)
	expectStatus(t, resp, http.StatusBadRequest)

	resp = app.do(t, admin, http.MethodPut, "/api/admin/questions/"+id, map[string]any{
		"level":         2,
		"text":          "What powers the flux capacitor?",
		"options":       []string{"Plutonium", "Gasoline", "Lightning"},
		"correct_index": 2,
		"points":        3,
	}, nil)
	expectStatus(t, resp, http.StatusOK)
	if updated := decodeBody(t, resp); updated["level"] != float64(2) || updated["points"] != float64(3) {
		t.Fatalf("unexpected update result %#v", updated)
	}

	csvData := "level,question,option a,option b,answer,points\n" +
		"1,Where does Doc live?,Hill Valley,Twin Pines,A,2\n" +
		"0,Broken row,Yes,No,A,1\n"
	resp = app.upload(t, admin, "/api/admin/questions/import", nil, &uploadFile{
		Field: "file", Filename: "questions.csv", ContentType: "text/csv", Data: []byte(csvData),
	}, nil)
	expectStatus(t, resp, http.StatusOK)
	result := decodeBody(t, resp)
	if result["imported"] != float64(1) || len(result["skipped"].([]any)) != 1 {
		t.Fatalf("unexpected import result %#v", result)
	}

	resp = app.upload(t, admin, "/api/admin/questions/import", nil, &uploadFile{
		Field: "file", Filename: "bad.csv", ContentType: "text/csv", Data: []byte("question\nHello\n"),
	}, nil)
	expectError(t, resp, http.StatusBadRequest, db.ErrMissingColumns.Error())

	resp = app.do(t, admin, http.MethodGet, "/api/admin/questions?level=1", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	if questions := decodeBody(t, resp)["questions"].([]any); len(questions) != 1 {
		t.Fatalf("expected 1 level-1 question, got %d", len(questions))
	}

	resp = app.do(t, admin, http.MethodDelete, "/api/admin/questions/"+id, nil, nil)
	expectStatus(t, resp, http.StatusNoContent)
	resp = app.do(t, admin, http.MethodDelete, "/api/admin/questions/"+id, nil, nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestAdminAccessCodes(t *testing.T) {
	app := newTestApp(t, nil)
	admin := loginAs(t, app, "doc@hillvalley.test", db.RoleAdmin)

	resp := app.do(t, admin, http.MethodPost, "/api/admin/access-codes", map[string]any{"label": "Front door", "max_uses": 50}, nil)
	expectStatus(t, resp, http.StatusCreated)
	created := decodeBody(t, resp)
	code, _ := created["code"].(string)
	if len(code) != generatedCodeLength || created["purpose"] != access.PurposeGuest || created["usable"] != true {
		t.Fatalf("unexpected generated code %#v", created)
	}
	id := idString(uint(created["id"].(float64)))

	resp = app.do(t, admin, http.MethodPost, "/api/admin/access-codes", map[string]any{"code": code}, nil)
	expectError(t, resp, http.StatusConflict, "that code already exists")

	resp = app.do(t, admin, http.MethodPost, "/api/admin/access-codes", map[string]any{
		"code": "OLD", "expires_at": app.clock.Now().Add(-time.Minute),
	}, nil)
	expectError(t, resp, http.StatusBadRequest, "expires_at must be in the future")

	resp = app.do(t, admin, http.MethodGet, "/api/admin/access-codes/"+id+"/qr.png", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected png, got %q", ct)
	}

	resp = app.do(t, admin, http.MethodPut, "/api/admin/access-codes/"+id, map[string]any{"active": false}, nil)
	expectStatus(t, resp, http.StatusOK)
	if usable := decodeBody(t, resp)["usable"]; usable != false {
		t.Fatalf("expected deactivated code to be unusable, got %#v", usable)
	}
	resp = app.request(t, http.MethodPost, "/api/access/verify", map[string]string{"code": code})
	expectError(t, resp, http.StatusForbidden, access.ErrInactive.Error())

	resp = app.do(t, admin, http.MethodDelete, "/api/admin/access-codes/"+id, nil, nil)
	expectStatus(t, resp, http.StatusNoContent)
}

func TestAdminGames(t *testing.T) {
	app := newTestApp(t, nil)
	admin := loginAs(t, app, "doc@hillvalley.test", db.RoleAdmin)

	resp := app.do(t, admin, http.MethodPost, "/api/admin/games", map[string]any{"title": "Enchantment Under the Sea", "max_participants": 3}, nil)
	expectStatus(t, resp, http.StatusCreated)
	created := decodeBody(t, resp)
	if created["status"] != db.GameStatusWaiting || created["max_participants"] != float64(3) {
		t.Fatalf("unexpected created game %#v", created)
	}
	id := strconv.Itoa(int(created["id"].(float64)))
	code := created["join_code"].(string)

	for _, name := range []string{"Lorraine", "George"} {
		resp = app.request(t, http.MethodPost, "/api/trivia/games/"+code+"/join", map[string]string{"name": name})
		expectStatus(t, resp, http.StatusOK)
	}

	resp = app.do(t, admin, http.MethodPut, "/api/admin/games/"+id, map[string]any{"title": "Enchantment Under the Sea", "max_participants": 1}, nil)
	expectError(t, resp, http.StatusConflict, "max_participants is below the current participant count")

	resp = app.do(t, admin, http.MethodGet, "/api/admin/games?status=waiting", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	games := decodeBody(t, resp)["games"].([]any)
	if len(games) != 1 || games[0].(map[string]any)["participants"] != float64(2) {
		t.Fatalf("expected one waiting game with 2 players, got %#v", games)
	}

	resp = app.do(t, admin, http.MethodPost, "/api/admin/games/"+id+"/start", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	if status := decodeBody(t, resp)["status"]; status != db.GameStatusActive {
		t.Fatalf("expected active game, got %#v", status)
	}
	resp = app.do(t, admin, http.MethodPost, "/api/admin/games/"+id+"/start", nil, nil)
	expectError(t, resp, http.StatusConflict, ErrGameClosed.Error())

	resp = app.request(t, http.MethodPost, "/api/trivia/games/"+code+"/join", map[string]string{"name": "Biff"})
	expectError(t, resp, http.StatusConflict, ErrGameClosed.Error())

	resp = app.do(t, admin, http.MethodPost, "/api/admin/games/"+id+"/end", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	if status := decodeBody(t, resp)["status"]; status != db.GameStatusCompleted {
		t.Fatalf("expected completed game, got %#v", status)
	}

	resp = app.do(t, admin, http.MethodDelete, "/api/admin/games/"+id, nil, nil)
	expectStatus(t, resp, http.StatusNoContent)
	resp = app.do(t, admin, http.MethodGet, "/api/admin/games/"+id, nil, nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestAdminPropsAndEvents(t *testing.T) {
	app := newTestApp(t, nil)
	editor := loginAs(t, app, "goldie@hillvalley.test", db.RoleEditor)

	resp := app.do(t, editor, http.MethodPost, "/api/admin/props", map[string]any{"description": "no name"}, nil)
	expectError(t, resp, http.StatusBadRequest, "name is required")

	resp = app.do(t, editor, http.MethodPost, "/api/admin/props", map[string]any{
		"name": "Flux Capacitor", "category": "Time travel", "display_order": 2,
	}, nil)
	expectStatus(t, resp, http.StatusCreated)
	id := idString(uint(decodeBody(t, resp)["id"].(float64)))

	resp = app.do(t, editor, http.MethodPost, "/api/admin/props", map[string]any{"name": "Flux Capacitor"}, nil)
	expectError(t, resp, http.StatusConflict, "a prop with that name already exists")

	resp = app.upload(t, editor, "/api/admin/props/"+id+"/image", nil, &uploadFile{
		Field:       "image",
		Filename:    "flux.png",
		ContentType: "image/png",
		Data:        testPNG,
	}, nil)
	expectStatus(t, resp, http.StatusOK)
	if url, _ := decodeBody(t, resp)["image_url"].(string); url == "" {
		t.Fatal("expected image_url after upload")
	}

	resp = app.do(t, editor, http.MethodPut, "/api/admin/props/"+id, map[string]any{"visible": false}, nil)
	expectStatus(t, resp, http.StatusOK)
	resp = app.request(t, http.MethodGet, "/api/props", nil)
	expectStatus(t, resp, http.StatusOK)
	if props := decodeBody(t, resp)["props"].([]any); len(props) != 0 {
		t.Fatalf("hidden prop must not be listed, got %d", len(props))
	}

	resp = app.do(t, editor, http.MethodGet, "/api/admin/events?type=prop_created", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	events := decodeBody(t, resp)["events"].([]any)
	if len(events) != 1 || events[0].(map[string]any)["actor"] != "admin:goldie@hillvalley.test" {
		t.Fatalf("expected one prop_created event by the editor, got %#v", events)
	}

	resp = app.do(t, editor, http.MethodDelete, "/api/admin/props/"+id, nil, nil)
	expectStatus(t, resp, http.StatusNoContent)
}
