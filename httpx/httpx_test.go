package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mbolis/quick-forms/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestResponseBuffer(t *testing.T) {
	buf := NewResponseBuffer()
	buf.Header().Set("content-type", "application/json")
	buf.WriteHeader(http.StatusTeapot)
	buf.WriteHeader(http.StatusOK)
	_, err := buf.Write([]byte(`{"a":1}`))
	require.NoError(t, err)

	require.Equal(t, http.StatusTeapot, buf.Status())
	var body map[string]int
	require.NoError(t, buf.DecodeJSON(&body))
	require.Equal(t, 1, body["a"])

	rec := httptest.NewRecorder()
	require.NoError(t, buf.Flush(rec))
	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("content-type"))
	require.JSONEq(t, `{"a":1}`, rec.Body.String())

	implicit := NewResponseBuffer()
	implicit.Write([]byte("ok"))
	require.Equal(t, http.StatusOK, implicit.Status())
}

func TestDecodeValid(t *testing.T) {
	t.Run(`valid`, func(t *testing.T) {
		form := model.Form{}
		err := DecodeValid(strings.NewReader(`{"title":"T","sections":[{"id":"s1","questions":[{"id":"q1","type":"text"}]}]}`), &form)
		require.NoError(t, err)
		require.Equal(t, "T", form.Title)
	})

	t.Run(`malformed`, func(t *testing.T) {
		err := DecodeValid(strings.NewReader(`{`), &model.Form{})
		require.Error(t, err)

		rec := httptest.NewRecorder()
		LogBadRequest(rec, httptest.NewRequest("POST", "/", nil), "request.parse_body", err)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "malformed request body")
	})

	t.Run(`field errors`, func(t *testing.T) {
		err := DecodeValid(strings.NewReader(`{"title":"","sections":[{"id":"s1","questions":[{"id":"q1","type":"video"}]}]}`), &model.Form{})
		require.Error(t, err)

		rec := httptest.NewRecorder()
		LogBadRequest(rec, httptest.NewRequest("POST", "/", nil), "request.parse_body", errors.Wrap(err, "decode"))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "is required", body.Fields["Form.title"])
		require.Equal(t, "must be one of [text textarea select radio checkbox rating score]", body.Fields["Form.sections[0].questions[0].type"])
	})

	t.Run(`at least one section`, func(t *testing.T) {
		err := DecodeValid(strings.NewReader(`{"title":"T","sections":[]}`), &model.Form{})
		require.Error(t, err)
	})
}
