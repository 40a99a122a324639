package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/averonhq/deskchat/internal/rest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*rest.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := rest.NewClient(server.URL, "tok-123", "E1", zerolog.Nop())
	return client, server
}

func TestListThreadsDecodesEnvelopeAndAliases(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/chat/threads", r.URL.Path)
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		require.Equal(t, "E1", r.Header.Get("X-Employee-Code"))

		_, _ = w.Write([]byte(`{"success":true,"data":{"threads":[
			{"thread_id":1,"title":"Leads Q3","chat_type":"group","unread":2},
			{"id":"t-2","name":null}
		]}}`))
	})

	threads, err := client.ListThreads(context.Background())
	require.NoError(t, err)
	require.Len(t, threads, 2)
	require.Equal(t, "1", threads[0].ID)
	require.Equal(t, "Leads Q3", threads[0].Name)
	require.Equal(t, 2, threads[0].UnreadCount)
	require.Equal(t, "Direct Chat", threads[1].DisplayName())
}

func TestHistoryDecodesBareArray(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/chat/threads/t-1/messages", r.URL.Path)
		require.Equal(t, "50", r.URL.Query().Get("limit"))

		_, _ = w.Write([]byte(`[
			{"thread_id":"t-1","sender_id":"E2","body":"hello","timestamp":1700000000000},
			{"room_id":"t-1","senderId":"E1","text":"hi back"}
		]`))
	})

	messages, err := client.History(context.Background(), "t-1", 50)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "hello", messages[0].Body)
	require.Equal(t, "hi back", messages[1].Body)
	require.Equal(t, "E1", messages[1].SenderID)
}

func TestHistorySkipsEntriesWithoutThread(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"body":"orphan"},{"thread_id":"t-1","body":"kept"}]`))
	})

	messages, err := client.History(context.Background(), "t-1", 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "kept", messages[0].Body)
}

func TestSendMessageReturnsNormalizedEcho(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "t-1", payload["thread_id"])
		require.Equal(t, "hello", payload["body"])

		_, _ = w.Write([]byte(`{"data":{"message":{"id":77,"thread_id":"t-1","sender_id":"E1","body":"hello"}}}`))
	})

	echo, err := client.SendMessage(context.Background(), "t-1", "hello", nil)
	require.NoError(t, err)
	require.Equal(t, "77", echo.ID)
	require.Equal(t, "hello", echo.Body)
}

func TestSendMessageRefusesEmpty(t *testing.T) {
	client, _ := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.SendMessage(context.Background(), "t-1", "   ", nil)
	require.Error(t, err)
}

func TestUnauthorizedIsSentinel(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ListThreads(context.Background())
	require.ErrorIs(t, err, rest.ErrUnauthorized)
}

func TestUploadAttachmentMultipart(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/chat/attachments", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "report.pdf", header.Filename)

		_, _ = w.Write([]byte(`{"data":{"attachment_id":"a-9","name":"report.pdf","mimetype":"application/pdf","size":11,"link":"https://files/a-9"}}`))
	})

	attachment, err := client.UploadAttachment(context.Background(), "report.pdf", strings.NewReader("hello bytes"))
	require.NoError(t, err)
	require.Equal(t, "a-9", attachment.ID)
	require.Equal(t, "report.pdf", attachment.Filename)
	require.Equal(t, "application/pdf", attachment.MimeType)
	require.Equal(t, int64(11), attachment.SizeBytes)
}

func TestGroupManagementEndpoints(t *testing.T) {
	var paths []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	})

	ctx := context.Background()
	require.NoError(t, client.RenameThread(ctx, "t-1", "New Name"))
	require.NoError(t, client.AddParticipants(ctx, "t-1", []string{"E2", "E3"}))
	require.NoError(t, client.RemoveParticipant(ctx, "t-1", "E2"))

	require.Equal(t, []string{
		"POST /api/v1/chat/threads/t-1/rename",
		"POST /api/v1/chat/threads/t-1/participants",
		"DELETE /api/v1/chat/threads/t-1/participants/E2",
	}, paths)
}

func TestRenameThreadValidatesName(t *testing.T) {
	client, _ := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})

	require.Error(t, client.RenameThread(context.Background(), "t-1", "   "))
}
