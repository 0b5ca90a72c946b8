package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/attachments"
	"github.com/mbolis/quick-forms/config"
	"github.com/mbolis/quick-forms/database"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/model"
	"github.com/mbolis/quick-forms/navigator"
	"github.com/stretchr/testify/require"
)

const testForm = `{
	"title": "Feedback",
	"sections": [
		{"id": "s1", "title": "First", "questions": [
			{"id": "q1", "type": "radio", "title": "Happy?", "options": ["yes", "no"], "required": true},
			{"id": "q2", "type": "text", "title": "Why?", "allowAttachments": true, "conditionalLogic": [
				{"sourceQuestionId": "q1", "condition": "equals", "value": "yes", "action": "show"}
			]}
		]},
		{"id": "s2", "title": "Second", "questions": [
			{"id": "q3", "type": "rating", "title": "Stars", "ratingScale": 5}
		]}
	]
}`

type testServer struct {
	t       *testing.T
	handler http.Handler
	store   *database.Store
}

func newTestServer(t *testing.T, opts ...func(*config.Config)) *testServer {
	t.Helper()
	store, err := database.Open(filepath.Join(t.TempDir(), "routes.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Config{TokenSecret: "test-secret", TokenTTL: time.Minute, MaxUpload: 1 << 20}
	for _, opt := range opts {
		opt(&cfg)
	}
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, "admin", "admin-pw", model.RoleAdmin))
	require.NoError(t, store.CreateUser(ctx, "ed", "ed-pw", model.RoleEditor))
	require.NoError(t, store.CreateUser(ctx, "ann", "ann-pw", model.RoleAnalyst))

	a := app.App{
		Store:        store,
		BearerServer: httpx.NewBearerServer(store, cfg),
		Config:       cfg,
		Attachments:  attachments.InlineStore{},
	}
	return &testServer{t: t, handler: Wire(a), store: store}
}

func (s *testServer) login(user, pass string) string {
	req := httptest.NewRequest("POST", "/api/login", nil)
	req.SetBasicAuth(user, pass)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &tokens))
	require.NotEmpty(s.t, tokens.AccessToken)
	return tokens.AccessToken
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("content-type", "application/json")
	}
	if token != "" {
		req.Header.Set("authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (s *testServer) createPublished(token string) string {
	rec := s.do("POST", "/api/admin/forms", token, testForm)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	decode(s.t, rec, &created)

	rec = s.do("PUT", "/api/admin/forms/"+created.ID+"/published", token, `{"published": true}`)
	require.Equal(s.t, http.StatusNoContent, rec.Code, rec.Body.String())
	return created.ID
}

func TestFormLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.login("ed", "ed-pw")

	rec := s.do("POST", "/api/admin/forms", token, testForm)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID       string   `json:"id"`
		Version  int      `json:"version"`
		Warnings []string `json:"warnings"`
	}
	decode(t, rec, &created)
	require.NotEmpty(t, created.ID)
	require.Equal(t, 1, created.Version)
	require.Empty(t, created.Warnings)

	t.Run(`drafts are hidden from respondents`, func(t *testing.T) {
		rec := s.do("GET", "/api/forms/"+created.ID, "", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run(`admin read`, func(t *testing.T) {
		rec := s.do("GET", "/api/admin/forms/"+created.ID, token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		form := model.Form{}
		decode(t, rec, &form)
		require.Equal(t, "ed", form.Owner)
		require.Len(t, form.Sections, 2)

		rec = s.do("GET", "/api/admin/forms", token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var list struct {
			Forms []model.Form `json:"forms"`
		}
		decode(t, rec, &list)
		require.Len(t, list.Forms, 1)
	})

	t.Run(`update`, func(t *testing.T) {
		body := strings.Replace(testForm, `"title": "Feedback"`, `"title": "Feedback 2", "version": 1`, 1)
		rec := s.do("PUT", "/api/admin/forms/"+created.ID, token, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated struct {
			Version int `json:"version"`
		}
		decode(t, rec, &updated)
		require.Equal(t, 2, updated.Version)

		rec = s.do("PUT", "/api/admin/forms/"+created.ID, token, body)
		require.Equal(t, http.StatusConflict, rec.Code)

		rec = s.do("PUT", "/api/admin/forms/"+created.ID, token, testForm)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = s.do("PUT", "/api/admin/forms/"+created.ID, token, `{"title": "x", "version": 2, "sections": []}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run(`publish`, func(t *testing.T) {
		rec := s.do("PUT", "/api/admin/forms/"+created.ID+"/published", token, `{"published": true}`)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = s.do("GET", "/api/forms/"+created.ID, "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		form := model.Form{}
		decode(t, rec, &form)
		require.Equal(t, "Feedback 2", form.Title)
		require.Empty(t, form.Owner)
	})

	t.Run(`delete`, func(t *testing.T) {
		rec := s.do("DELETE", "/api/admin/forms/"+created.ID, token, "")
		require.Equal(t, http.StatusNoContent, rec.Code)
		rec = s.do("DELETE", "/api/admin/forms/"+created.ID, token, "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAuthorization(t *testing.T) {
	s := newTestServer(t)

	rec := s.do("GET", "/api/admin/forms", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest("POST", "/api/login", nil)
	req.SetBasicAuth("ed", "wrong")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.NotEqual(t, http.StatusOK, rec.Code)

	analyst := s.login("ann", "ann-pw")
	rec = s.do("POST", "/api/admin/forms", analyst, testForm)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do("GET", "/api/admin/me/capabilities", analyst, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		Username     string             `json:"username"`
		Capabilities model.Capabilities `json:"capabilities"`
	}
	decode(t, rec, &me)
	require.Equal(t, "ann", me.Username)
	require.Equal(t, model.Capabilities{CanViewResponses: true}, me.Capabilities)

	editor := s.login("ed", "ed-pw")
	formID := s.createPublished(editor)

	t.Run(`only the owner or a master admin manages a form`, func(t *testing.T) {
		require.NoError(t, s.store.CreateUser(context.Background(), "eve", "eve-pw", model.RoleEditor))
		other := s.login("eve", "eve-pw")
		rec := s.do("DELETE", "/api/admin/forms/"+formID, other, "")
		require.Equal(t, http.StatusForbidden, rec.Code)
		rec = s.do("PUT", "/api/admin/forms/"+formID+"/published", other, `{"published": false}`)
		require.Equal(t, http.StatusForbidden, rec.Code)

		admin := s.login("admin", "admin-pw")
		rec = s.do("PUT", "/api/admin/forms/"+formID+"/published", admin, `{"published": false}`)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestSubmit(t *testing.T) {
	s := newTestServer(t)
	editor := s.login("ed", "ed-pw")
	formID := s.createPublished(editor)

	t.Run(`missing required answers`, func(t *testing.T) {
		rec := s.do("POST", "/api/forms/"+formID+"/responses", "", `{"answers": []}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var body struct {
			InvalidIDs []string `json:"invalidIds"`
			First      string   `json:"first"`
		}
		decode(t, rec, &body)
		require.Equal(t, []string{"q1"}, body.InvalidIDs)
		require.Equal(t, "q1", body.First)
	})

	t.Run(`attachment on a question without uploads`, func(t *testing.T) {
		rec := s.do("POST", "/api/forms/"+formID+"/responses", "", `{
			"answers": [{"questionId": "q1", "answer": "no"}],
			"attachments": {"q1": "aGVsbG8="}
		}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run(`malformed attachment`, func(t *testing.T) {
		rec := s.do("POST", "/api/forms/"+formID+"/responses", "", `{
			"answers": [{"questionId": "q1", "answer": "yes"}],
			"attachments": {"q2": "data:text/plain,plain"}
		}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	rec := s.do("POST", "/api/forms/"+formID+"/responses", "", `{
		"answers": [
			{"questionId": "q3", "answer": 4},
			{"questionId": "q1", "answer": "yes"},
			{"questionId": "q2", "answer": "great"},
			{"questionId": "ghost", "answer": "boo"}
		],
		"attachments": {"q2": "data:text/plain;base64,aGVsbG8="}
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	analyst := s.login("ann", "ann-pw")

	rec = s.do("GET", "/api/admin/forms/"+formID+"/responses", analyst, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Responses []model.Response `json:"responses"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Responses, 1)
	resp := list.Responses[0]
	require.Equal(t, []model.ResponseAnswer{
		{QuestionID: "q1", Answer: model.Text("yes")},
		{QuestionID: "q2", Answer: model.Text("great")},
		{QuestionID: "q3", Answer: model.Number(4)},
	}, resp.Answers)
	require.True(t, strings.HasPrefix(resp.Attachments["q2"], "data:"))
	require.Equal(t, "192.0.2.1", resp.IP)

	t.Run(`stats`, func(t *testing.T) {
		rec := s.do("GET", "/api/admin/forms/"+formID+"/stats", analyst, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var summary struct {
			Responses int `json:"responses"`
			Questions []struct {
				QuestionID string   `json:"questionId"`
				Answered   int      `json:"answered"`
				Average    *float64 `json:"average"`
			} `json:"questions"`
		}
		decode(t, rec, &summary)
		require.Equal(t, 1, summary.Responses)
		require.Len(t, summary.Questions, 3)
		require.Equal(t, 4.0, *summary.Questions[2].Average)
	})

	t.Run(`analysts cannot edit responses`, func(t *testing.T) {
		rec := s.do("DELETE", "/api/admin/responses/"+resp.ID, analyst, "")
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run(`replace and delete`, func(t *testing.T) {
		rec := s.do("PUT", "/api/admin/responses/"+resp.ID, editor, `{"answers": [{"questionId": "q1", "answer": "no"}]}`)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		stored, err := s.store.GetResponse(context.Background(), resp.ID)
		require.NoError(t, err)
		require.Equal(t, []model.ResponseAnswer{{QuestionID: "q1", Answer: model.Text("no")}}, stored.Answers)
		require.Nil(t, stored.Attachments)

		rec = s.do("DELETE", "/api/admin/responses/"+resp.ID, editor, "")
		require.Equal(t, http.StatusNoContent, rec.Code)
		rec = s.do("DELETE", "/api/admin/responses/"+resp.ID, editor, "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

type sessionReply struct {
	State   navigator.State    `json:"state"`
	Effects []navigator.Effect `json:"effects"`
	View    navigator.View     `json:"view"`
}

func (s *testServer) session(formID string, state navigator.State, cmd navigator.Command) (int, sessionReply) {
	body, err := json.Marshal(map[string]any{"state": state, "command": cmd})
	require.NoError(s.t, err)

	req := httptest.NewRequest("POST", "/api/forms/"+formID+"/session", bytes.NewReader(body))
	req.Header.Set("content-type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	reply := sessionReply{}
	if rec.Code == http.StatusOK {
		decode(s.t, rec, &reply)
	}
	return rec.Code, reply
}

func TestOneResponsePerIP(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.OneResponsePerIP = true })
	formID := s.createPublished(s.login("ed", "ed-pw"))

	body := `{"answers": [{"questionId": "q1", "answer": "yes"}]}`
	rec := s.do("POST", "/api/forms/"+formID+"/responses", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do("POST", "/api/forms/"+formID+"/responses", "", body)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitEndpointsShareInFlightGuard(t *testing.T) {
	s := newTestServer(t)
	formID := s.createPublished(s.login("ed", "ed-pw"))
	form, err := s.store.GetForm(context.Background(), formID)
	require.NoError(t, err)

	guard := newInFlight()
	a := app.App{Store: s.store, Attachments: attachments.InlineStore{}}
	router := chi.NewRouter()
	router.Post(`/forms/{id}/responses`, PublicSubmitForm(a, guard))
	router.Post(`/forms/{id}/session`, PublicSession(a, guard))

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", path, strings.NewReader(body))
		req.Header.Set("content-type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	state := navigator.NewState()
	state.Phase = navigator.PhaseAnswering
	state.Answers = model.Answers{"q1": model.Text("yes")}
	sessionBody, err := json.Marshal(map[string]any{"state": state, "command": navigator.Command{Kind: navigator.CmdSubmit}})
	require.NoError(t, err)
	submitBody := `{"answers": [{"questionId": "q1", "answer": "yes"}]}`

	// httptest requests come from 192.0.2.1
	require.True(t, guard.acquire(formID+"|192.0.2.1"))

	_, err = responseWriter{a, guard, form, "192.0.2.1"}.write(context.Background(), state.Answers, nil)
	require.ErrorIs(t, err, errInFlight)

	rec := post("/forms/"+formID+"/responses", submitBody)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = post("/forms/"+formID+"/session", string(sessionBody))
	require.Equal(t, http.StatusOK, rec.Code)
	reply := sessionReply{}
	decode(t, rec, &reply)
	require.Equal(t, navigator.PhaseAnswering, reply.State.Phase)
	require.Equal(t, navigator.EffectPersistenceFailed, reply.Effects[len(reply.Effects)-1].Kind)

	guard.release(formID + "|192.0.2.1")

	rec = post("/forms/"+formID+"/session", string(sessionBody))
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &reply)
	require.Equal(t, navigator.PhaseSubmitted, reply.State.Phase)

	rec = post("/forms/"+formID+"/responses", submitBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestRequestBodyLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.MaxUpload = 2048 })
	formID := s.createPublished(s.login("ed", "ed-pw"))

	long := strings.Repeat("a", 4096)
	rec := s.do("POST", "/api/forms/"+formID+"/responses", "", `{"answers": [{"questionId": "q1", "answer": "`+long+`"}]}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = s.do("POST", "/api/forms/"+formID+"/responses", "", `{"answers": [{"questionId": "q1", "answer": "yes"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestSession(t *testing.T) {
	s := newTestServer(t)
	formID := s.createPublished(s.login("ed", "ed-pw"))

	code, reply := s.session(formID, navigator.NewState(), navigator.Command{Kind: navigator.CmdStart})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, navigator.PhaseAnswering, reply.State.Phase)
	require.Equal(t, "q1", reply.View.Question.ID)
	require.Empty(t, reply.Effects)

	code, reply = s.session(formID, reply.State, navigator.Command{Kind: navigator.CmdNext})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, navigator.EffectValidationFailed, reply.Effects[0].Kind)
	require.Equal(t, []string{"q1"}, reply.State.Errors)
	require.True(t, reply.View.Question.HasError)

	code, reply = s.session(formID, reply.State, navigator.Command{Kind: navigator.CmdSetAnswer, QuestionID: "q1", Answer: model.Text("yes")})
	require.Equal(t, http.StatusOK, code)
	code, reply = s.session(formID, reply.State, navigator.Command{Kind: navigator.CmdNext})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, navigator.Cursor{Section: 0, Question: 1}, reply.State.Cursor)
	require.True(t, reply.View.Question.Visible)

	code, reply = s.session(formID, reply.State, navigator.Command{Kind: navigator.CmdSubmit})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, navigator.PhaseSubmitted, reply.State.Phase)
	require.Equal(t, navigator.EffectSubmitRequested, reply.Effects[0].Kind)
	require.Equal(t, navigator.EffectSubmitted, reply.Effects[1].Kind)

	responses, err := s.store.ListResponses(context.Background(), formID)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	require.Equal(t, []model.ResponseAnswer{{QuestionID: "q1", Answer: model.Text("yes")}}, responses[0].Answers)

	t.Run(`bad requests`, func(t *testing.T) {
		code, _ := s.session(formID, navigator.NewState(), navigator.Command{Kind: "fly"})
		require.Equal(t, http.StatusBadRequest, code)

		state := navigator.NewState()
		state.Cursor = navigator.Cursor{Section: 5}
		code, _ = s.session(formID, state, navigator.Command{Kind: navigator.CmdNext})
		require.Equal(t, http.StatusBadRequest, code)

		code, _ = s.session("nope", navigator.NewState(), navigator.Command{Kind: navigator.CmdStart})
		require.Equal(t, http.StatusNotFound, code)
	})

	t.Run(`client state is checked against the form`, func(t *testing.T) {
		state := navigator.NewState()
		state.Phase = navigator.PhaseAnswering
		state.Answers = model.Answers{"q1": model.Text("no")}

		state.Attachments = map[string]string{"q1": "data:text/plain;base64,aGVsbG8="}
		code, _ := s.session(formID, state, navigator.Command{Kind: navigator.CmdSubmit})
		require.Equal(t, http.StatusBadRequest, code)

		state.Attachments = map[string]string{"ghost": "data:text/plain;base64,aGVsbG8="}
		code, _ = s.session(formID, state, navigator.Command{Kind: navigator.CmdSubmit})
		require.Equal(t, http.StatusBadRequest, code)

		state.Attachments = map[string]string{}
		state.Answers["ghost"] = model.Text("boo")
		code, reply := s.session(formID, state, navigator.Command{Kind: navigator.CmdSubmit})
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, navigator.PhaseSubmitted, reply.State.Phase)
		require.NotContains(t, reply.State.Answers, "ghost")

		responses, err := s.store.ListResponses(context.Background(), formID)
		require.NoError(t, err)
		require.Len(t, responses, 2)
		for _, resp := range responses {
			require.Empty(t, resp.Attachments)
			for _, a := range resp.Answers {
				require.NotEqual(t, "ghost", a.QuestionID)
			}
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := s.do("GET", "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
