package httpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/robalobadob/digitspan/internal/daily"
	"github.com/robalobadob/digitspan/internal/game"
	"github.com/robalobadob/digitspan/internal/store"
	"github.com/robalobadob/digitspan/internal/view"
)

const testSalt = "test-salt"

type testEnv struct {
	srv *Server
	st  store.Store
	fc  *clockwork.FakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fc := clockwork.NewFakeClock()
	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })
	srv := New(st, Options{
		Secret:    []byte("test-secret"),
		TokenTTL:  time.Hour,
		Origin:    "http://example.test",
		DailySalt: testSalt,
		Clock:     fc,
	})
	return &testEnv{srv: srv, st: st, fc: fc}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) newGame(t *testing.T, mode string) newGameRes {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/game/new", "", newGameReq{Mode: mode})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /game/new = %d %s", rec.Code, rec.Body.String())
	}
	var res newGameRes
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode new game: %v", err)
	}
	return res
}

func (e *testEnv) state(t *testing.T, g newGameRes) stateRes {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/game/"+g.GameID, g.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET state = %d %s", rec.Code, rec.Body.String())
	}
	var res stateRes
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return res
}

// finishPresentation advances the fake clock through every show/blank delay of a
// sequence of length n and waits for the controller to accept input.
func (e *testEnv) finishPresentation(t *testing.T, g newGameRes, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < 2*n; i++ {
		if err := e.fc.BlockUntilContext(ctx, 1); err != nil {
			t.Fatalf("presentation stalled: %v", err)
		}
		e.fc.Advance(game.ShowDelay)
	}
	for e.state(t, g).State.Phase != game.PhaseAwaitingInput {
		if ctx.Err() != nil {
			t.Fatal("controller never reached awaiting_input")
		}
		time.Sleep(time.Millisecond)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestHealthAndIndex(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("/health = %d %q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://example.test" {
		t.Fatalf("CORS origin = %q", got)
	}
	rec = e.do(t, http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "digitspan-go") {
		t.Fatalf("/ = %d %q", rec.Code, rec.Body.String())
	}
	rec = e.do(t, http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "not_found" {
		t.Fatalf("/nope = %d %q", rec.Code, rec.Body.String())
	}
}

func TestPlayPageAndGuide(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/play", "", nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("/play = %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	for _, path := range []string{"/guide/how-to-play", "/guide/faq"} {
		rec := e.do(t, http.MethodGet, path, "", nil)
		var res guideRes
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil || rec.Code != http.StatusOK {
			t.Fatalf("%s = %d err %v", path, rec.Code, err)
		}
		if res.Markdown == "" {
			t.Fatalf("%s returned empty markdown", path)
		}
	}
}

func TestNewGame(t *testing.T) {
	e := newTestEnv(t)
	g := e.newGame(t, "")
	if g.GameID == "" || g.Token == "" || g.Mode != "normal" {
		t.Fatalf("new game = %+v", g)
	}
	if g.View.Lives != game.InitialLives || !g.View.StartEnabled || g.View.InputEnabled || g.View.CheckEnabled {
		t.Fatalf("initial view = %+v", g.View)
	}
	if e.st.Len() != 1 {
		t.Fatalf("store Len = %d want 1", e.st.Len())
	}

	rec := e.do(t, http.MethodPost, "/game/new", "", newGameReq{Mode: "hard"})
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "unknown_mode" {
		t.Fatalf("unknown mode = %d %q", rec.Code, rec.Body.String())
	}
}

func TestGameRoutesRequireMatchingToken(t *testing.T) {
	e := newTestEnv(t)
	a := e.newGame(t, "normal")
	b := e.newGame(t, "normal")

	tests := []struct {
		name  string
		path  string
		token string
		code  int
		err   string
	}{
		{name: "missing", path: "/game/" + a.GameID, token: "", code: http.StatusUnauthorized, err: "unauthorized"},
		{name: "garbage", path: "/game/" + a.GameID, token: "abc", code: http.StatusUnauthorized, err: "invalid_token"},
		{name: "other game", path: "/game/" + a.GameID, token: b.Token, code: http.StatusUnauthorized, err: "invalid_token"},
		{name: "own game", path: "/game/" + a.GameID, token: a.Token, code: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodGet, tt.path, tt.token, nil)
			if rec.Code != tt.code {
				t.Fatalf("code = %d want %d (%s)", rec.Code, tt.code, rec.Body.String())
			}
			if tt.err != "" && errorCode(t, rec) != tt.err {
				t.Fatalf("error = %q want %q", errorCode(t, rec), tt.err)
			}
		})
	}
}

func TestTokenCookieAndExpiry(t *testing.T) {
	e := newTestEnv(t)
	g := e.newGame(t, "normal")

	req := httptest.NewRequest(http.MethodGet, "/game/"+g.GameID, nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: g.Token})
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cookie auth = %d %s", rec.Code, rec.Body.String())
	}

	e.fc.Advance(2 * time.Hour)
	rec = e.do(t, http.MethodGet, "/game/"+g.GameID, g.Token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token = %d want 401", rec.Code)
	}
}

func TestWrongPhaseCallsConflict(t *testing.T) {
	e := newTestEnv(t)
	g := e.newGame(t, "normal")
	base := "/game/" + g.GameID

	rec := e.do(t, http.MethodPost, base+"/input", g.Token, inputReq{Value: "12"})
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "input_disabled" {
		t.Fatalf("input while idle = %d %s", rec.Code, rec.Body.String())
	}
	rec = e.do(t, http.MethodPost, base+"/check", g.Token, nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "not_awaiting_input" {
		t.Fatalf("check while idle = %d %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodPost, base+"/start", g.Token, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start = %d %s", rec.Code, rec.Body.String())
	}
	rec = e.do(t, http.MethodPost, base+"/start", g.Token, nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "not_idle" {
		t.Fatalf("second start = %d %s", rec.Code, rec.Body.String())
	}
	rec = e.do(t, http.MethodPost, base+"/restart", g.Token, nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "busy" {
		t.Fatalf("restart while presenting = %d %s", rec.Code, rec.Body.String())
	}
}

func TestDailyRoundThroughAPI(t *testing.T) {
	e := newTestEnv(t)
	g := e.newGame(t, "daily")
	base := "/game/" + g.GameID

	src := daily.Source(e.fc.Now(), testSalt)
	target := fmt.Sprintf("%d%d", src.Intn(10), src.Intn(10))

	if rec := e.do(t, http.MethodPost, base+"/start", g.Token, nil); rec.Code != http.StatusAccepted {
		t.Fatalf("start = %d %s", rec.Code, rec.Body.String())
	}
	e.finishPresentation(t, g, game.InitialLevel)

	rec := e.do(t, http.MethodPost, base+"/check", g.Token, nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "incomplete_input" {
		t.Fatalf("check on empty input = %d %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodPost, base+"/input", g.Token, inputReq{Value: "x" + target + "9"})
	var in inputRes
	if err := json.NewDecoder(rec.Body).Decode(&in); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("input = %d err %v", rec.Code, err)
	}
	if in.Value != target || !in.CheckEnabled {
		t.Fatalf("input res = %+v want value %q with check enabled", in, target)
	}

	rec = e.do(t, http.MethodPost, base+"/check", g.Token, nil)
	var chk checkRes
	if err := json.NewDecoder(rec.Body).Decode(&chk); err != nil || rec.Code != http.StatusAccepted {
		t.Fatalf("check = %d err %v", rec.Code, err)
	}
	if chk.Outcome != game.OutcomeMatch || chk.State.Phase != game.PhaseChecking {
		t.Fatalf("check res = %+v", chk)
	}
	st := e.state(t, g)
	if st.View.Digit != game.SuccessGlyph || st.View.DigitColor != game.ColorSuccess {
		t.Fatalf("view after match = %+v", st.View)
	}
}

func TestRestartAndDelete(t *testing.T) {
	e := newTestEnv(t)
	g := e.newGame(t, "normal")
	base := "/game/" + g.GameID

	rec := e.do(t, http.MethodPost, base+"/restart", g.Token, nil)
	var res stateRes
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("restart = %d err %v", rec.Code, err)
	}
	if res.State.Phase != game.PhaseIdle || res.State.Lives != game.InitialLives || res.State.Level != game.InitialLevel {
		t.Fatalf("state after restart = %+v", res.State)
	}

	if rec := e.do(t, http.MethodDelete, base, g.Token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, base, g.Token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d want 404", rec.Code)
	}
}

func TestEventsStreamViews(t *testing.T) {
	e := newTestEnv(t)
	g := e.newGame(t, "normal")
	ts := httptest.NewServer(e.srv.Router())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/game/"+g.GameID+"/events", nil)
	req.Header.Set("Authorization", "Bearer "+g.Token)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	var first view.View
	for sc.Scan() {
		if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
			if err := json.Unmarshal([]byte(data), &first); err != nil {
				t.Fatalf("decode frame: %v", err)
			}
			break
		}
	}
	if first.Lives != game.InitialLives || !first.StartEnabled {
		t.Fatalf("first frame = %+v", first)
	}

	// Closing the match ends the stream.
	if err := e.st.Delete(context.Background(), g.GameID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		t.Fatalf("stream did not end cleanly: %v", err)
	}
}

func TestRetryClearsInput(t *testing.T) {
	e := newTestEnv(t)
	g := e.newGame(t, "daily")
	base := "/game/" + g.GameID

	src := daily.Source(e.fc.Now(), testSalt)
	wrong := fmt.Sprintf("%d%d", (src.Intn(10)+1)%10, src.Intn(10))

	if rec := e.do(t, http.MethodPost, base+"/start", g.Token, nil); rec.Code != http.StatusAccepted {
		t.Fatalf("start = %d %s", rec.Code, rec.Body.String())
	}
	e.finishPresentation(t, g, game.InitialLevel)
	if rec := e.do(t, http.MethodPost, base+"/input", g.Token, inputReq{Value: wrong}); rec.Code != http.StatusOK {
		t.Fatalf("input = %d %s", rec.Code, rec.Body.String())
	}

	rec := e.do(t, http.MethodPost, base+"/check", g.Token, nil)
	var chk checkRes
	if err := json.NewDecoder(rec.Body).Decode(&chk); err != nil || rec.Code != http.StatusAccepted {
		t.Fatalf("check = %d err %v", rec.Code, err)
	}
	if chk.Outcome != game.OutcomeRetry {
		t.Fatalf("outcome = %q want %q", chk.Outcome, game.OutcomeRetry)
	}
	st := e.state(t, g)
	if st.View.Input != "" || !st.View.InputEnabled || st.View.CheckEnabled {
		t.Fatalf("view after retry = %+v want empty enabled input and disabled check", st.View)
	}
	if st.View.Lives != game.InitialLives-1 || st.View.Result != game.RetryMessage {
		t.Fatalf("view after retry = %+v", st.View)
	}
}

func TestPlayPagePaintsInputFromServer(t *testing.T) {
	e := newTestEnv(t)
	body := e.do(t, http.MethodGet, "/play", "", nil).Body.String()
	// The field follows server frames unless a local edit is still in flight,
	// and focus is only taken when the field becomes enabled.
	for _, want := range []string{"if (pendingInput === 0) $(\"input\").value = v.input;", "v.inputEnabled && wasDisabled"} {
		if !strings.Contains(body, want) {
			t.Fatalf("/play missing %q", want)
		}
	}
	if strings.Contains(body, "document.activeElement") {
		t.Fatal("/play must not skip input frames based on focus")
	}
}
