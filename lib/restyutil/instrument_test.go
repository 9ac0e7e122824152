package restyutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestDumpName(t *testing.T) {
	require.Equal(
		t,
		"0001_racelist_hd=20240115_jcd=01_rno=1.html",
		dumpName(1, "https://www.boatrace.jp/owpc/pc/race/racelist?hd=20240115&jcd=01&rno=1"),
	)
	require.Equal(t, "0012_index.html", dumpName(12, "https://www.boatrace.jp/owpc/pc/race/index"))
}

func TestInstrumentClientDumpsPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	dir := t.TempDir()
	output, err := NewDirectoryOutput(dir)
	require.NoError(t, err)

	client := resty.New()
	InstrumentClient(client, nil, output)

	_, err = client.R().Get(server.URL + "/owpc/pc/race/index?hd=20240115")
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(dir, "0001_index_hd=20240115.html"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(contents), "<!-- GET "))
	require.Contains(t, string(contents), "<html><body>ok</body></html>")
}
