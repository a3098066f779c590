package clinic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"
)

const mockBase = "http://clinic.test"

func mockedClient(t *testing.T) *Client {
	t.Helper()

	c := New(mockBase, Options{})
	gock.InterceptClient(c.HTTPClient())
	t.Cleanup(func() {
		gock.RestoreClient(c.HTTPClient())
		gock.Off()
	})
	return c
}

func TestMoveFilesSuccess(t *testing.T) {
	c := mockedClient(t)

	gock.New(mockBase).
		Post(DefaultRelocatePath).
		MatchType("json").
		JSON(map[string]any{
			"patientId": "p-1",
			"tempPaths": map[string]string{"xray": "tmp/a.png"},
		}).
		Reply(200).
		JSON(map[string]any{"newPaths": map[string]string{"xray": "patients/p-1/xray/a.png"}})

	res, err := c.MoveFiles(context.Background(), MoveRequest{
		PatientID: "p-1",
		TempPaths: map[string]string{"xray": "tmp/a.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, map[string]string{"xray": "patients/p-1/xray/a.png"}, res.NewPaths)
	assert.True(t, gock.IsDone())
}

func TestMoveFilesStatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "server error message", status: 400, body: `{"error":"patient not found"}`, wantMsg: "patient not found"},
		{name: "plain text body", status: 502, body: "bad gateway from proxy", wantMsg: "bad gateway from proxy"},
		{name: "empty body", status: 500, body: "", wantMsg: "Internal Server Error"},
		{name: "json without error field", status: 404, body: `{"detail":"x"}`, wantMsg: `{"detail":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mockedClient(t)
			gock.New(mockBase).Post(DefaultRelocatePath).Reply(tt.status).BodyString(tt.body)

			res, err := c.MoveFiles(context.Background(), MoveRequest{PatientID: "p-1"})
			require.Error(t, err)
			assert.Nil(t, res)

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.Code)
			assert.Equal(t, tt.wantMsg, se.Message)
			assert.False(t, IsTransport(err))
		})
	}
}

func TestMoveFilesMalformedSuccessBody(t *testing.T) {
	c := mockedClient(t)
	gock.New(mockBase).Post(DefaultRelocatePath).Reply(200).BodyString("moved")

	_, err := c.MoveFiles(context.Background(), MoveRequest{PatientID: "p-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
	assert.False(t, IsTransport(err))
}

func TestMoveFilesUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, Options{})
	_, err := c.MoveFiles(context.Background(), MoveRequest{PatientID: "p-1"})
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Contains(t, err.Error(), url+DefaultRelocatePath)
}

func TestHealthReturnsAnyStatus(t *testing.T) {
	c := mockedClient(t)
	gock.New(mockBase).Get(DefaultHealthPath).Reply(503).JSON(map[string]string{"status": "down"})

	reply, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.False(t, reply.OK())
	assert.Equal(t, 503, reply.StatusCode)
	assert.Equal(t, map[string]any{"status": "down"}, reply.Decoded())
}

func TestUploadSendsMultipart(t *testing.T) {
	var gotFiles []string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, fh := range r.MultipartForm.File["files"] {
			gotFiles = append(gotFiles, fh.Filename)
		}
		io.WriteString(w, "stored")
	}))
	defer srv.Close()

	c := New(srv.URL, Options{})

	reply, err := c.Upload(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, reply.OK())
	assert.Contains(t, gotContentType, "multipart/form-data")
	assert.Empty(t, gotFiles)
	assert.Equal(t, "stored", reply.Decoded())

	_, err = c.Upload(context.Background(), map[string][]byte{"scan.txt": []byte("hello")})
	require.NoError(t, err)
	assert.Equal(t, []string{"scan.txt"}, gotFiles)
}

func TestCustomEndpoints(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"newPaths": map[string]string{}})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", Options{Endpoints: Endpoints{Health: "/healthz"}})
	assert.Equal(t, "/healthz", c.Endpoints().Health)
	assert.Equal(t, DefaultUploadPath, c.Endpoints().Upload)

	_, err := c.Health(context.Background())
	require.NoError(t, err)
	_, err = c.MoveFiles(context.Background(), MoveRequest{PatientID: "p"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/healthz", DefaultRelocatePath}, paths)
	assert.Equal(t, srv.URL+"/healthz", c.URL("/healthz"))
}

func TestReplyDecoded(t *testing.T) {
	assert.Equal(t, "", (&Reply{}).Decoded())
	assert.Equal(t, "not json", (&Reply{Body: []byte("not json")}).Decoded())
	assert.Equal(t, []any{1.0, 2.0}, (&Reply{Body: []byte("[1,2]")}).Decoded())
}
