package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkcircle/talkcircle-backend/internal/domain"
	"github.com/talkcircle/talkcircle-backend/internal/service"
	"github.com/talkcircle/talkcircle-backend/internal/testutil"
)

func postJSON(t *testing.T, url string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestQueueFlow(t *testing.T) {
	ts := testutil.NewTestServer(t)

	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	var status service.QueueStatus
	resp := postJSON(t, ts.APIURL("/queue/join"), map[string]string{
		"userId": users[0].String(),
		"name":   "ada",
	}, &status)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, service.QueueStateWaiting, status.State)
	assert.Equal(t, 1, status.Position)

	resp = postJSON(t, ts.APIURL("/queue/join"), map[string]string{
		"userId": users[1].String(),
		"name":   "ben",
	}, &status)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, status.Position)

	resp = postJSON(t, ts.APIURL("/queue/join"), map[string]string{
		"userId": users[2].String(),
		"name":   "cal",
	}, &status)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, service.QueueStateMatched, status.State)
	require.NotNil(t, status.Room)
	assert.Len(t, status.Room.Participants.Data(), 3)

	resp = getJSON(t, ts.APIURL("/queue/status?userId="+users[0].String()), &status)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, service.QueueStateMatched, status.State)

	// Malformed ids are rejected up front.
	resp = postJSON(t, ts.APIURL("/queue/join"), map[string]string{
		"userId": "not-a-uuid",
		"name":   "dan",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Leaving after being matched is a harmless no-op.
	resp = postJSON(t, ts.APIURL("/queue/leave"), map[string]string{
		"userId": users[0].String(),
	}, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRoomLifecycleOverHTTP(t *testing.T) {
	ts := testutil.NewTestServer(t)

	ada, ben := uuid.New(), uuid.New()

	var room domain.DiscussionRoom
	resp := postJSON(t, ts.APIURL("/rooms/"), map[string]interface{}{
		"mode":            "practice",
		"topic":           "remote work",
		"durationSeconds": 120,
		"participants": []map[string]string{
			{"userId": ada.String(), "name": "ada"},
			{"userId": ben.String(), "name": "ben"},
		},
	}, &room)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, domain.RoomStatusLobby, room.Status)

	resp = postJSON(t, ts.APIURL("/rooms/"+room.ID.String()+"/start"), nil, &room)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.RoomStatusActive, room.Status)

	// Seed the transcript directly; streaming is exercised elsewhere.
	require.NoError(t, ts.DB.DB.Create(testutil.NewUtterance(room.ID, domain.Participant{UserID: ada, Name: "ada"}, "i agree remote work helps focus", 0, 4000)).Error)

	for _, userID := range []uuid.UUID{ada, ben} {
		resp = postJSON(t, ts.APIURL("/rooms/"+room.ID.String()+"/leave"), map[string]string{
			"userId": userID.String(),
		}, &room)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, domain.RoomStatusCompleted, room.Status)

	var transcript []domain.Utterance
	resp = getJSON(t, ts.APIURL("/rooms/"+room.ID.String()+"/transcript"), &transcript)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, transcript, 1)

	var scores map[string]interface{}
	resp = getJSON(t, ts.APIURL("/rooms/"+room.ID.String()+"/scores"), &scores)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "remote work", scores["topic"])

	// Unknown rooms 404.
	resp = getJSON(t, ts.APIURL("/rooms/"+uuid.NewString()), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Active rooms cannot be deleted; completed neither.
	req, err := http.NewRequest(http.MethodDelete, ts.APIURL("/rooms/"+room.ID.String()), nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusConflict, delResp.StatusCode)
}
