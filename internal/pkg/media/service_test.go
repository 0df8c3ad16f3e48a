package media

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/vetscribe/scribe/internal/pkg/persistence"
	"github.com/vetscribe/scribe/internal/pkg/test"
	"github.com/vetscribe/scribe/internal/pkg/test/mocks"
	"github.com/vetscribe/scribe/internal/pkg/utils"
)

var (
	filerMock *mocks.Filer
	dbMock    *mocks.DB
	tData     *Data
	tEcho     *echo.Echo
)

func initTest(t *testing.T) {
	filerMock = &mocks.Filer{}
	dbMock = &mocks.DB{}
	tData = &Data{}
	tData.NameProvider = dbMock
	tData.Reader = filerMock
	tEcho = initRoutes(tData)
	filerMock.On("LoadFile", mock.Anything, "1/rec.ogg").Return(
		&testFileWrap{s: "audio", n: "rec.ogg"}, nil)
	dbMock.On("LoadConsultation", mock.Anything, "1").Return(
		&persistence.Consultation{ID: "1", FileName: "rec.ogg", AudioPath: "1/rec.ogg"}, nil)
}

func TestWrongPath(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/invalid", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func TestWrongMethod(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodPost, "/audio/1", nil)
	test.Code(t, tEcho, req, 405)
}

func Test_Audio(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/audio/1", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Equal(t, "audio", test.RStr(t, resp.Body))
	assert.Equal(t, "attachment; filename=rec.ogg", resp.Header().Get("Content-Disposition"))
}

func Test_Audio_NoRecord(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadConsultation", mock.Anything, "2").Return(nil, utils.NewErrNoRecord("2"))
	req := httptest.NewRequest(http.MethodGet, "/audio/2", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func Test_Audio_NoFile(t *testing.T) {
	initTest(t)
	filerMock.ExpectedCalls = nil
	filerMock.On("LoadFile", mock.Anything, "1/rec.ogg").Return(nil,
		minio.ErrorResponse{StatusCode: http.StatusNotFound})
	req := httptest.NewRequest(http.MethodGet, "/audio/1", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func Test_AudioHead(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodHead, "/audio/1", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Equal(t, "", test.RStr(t, resp.Body))
	assert.Equal(t, "attachment; filename=rec.ogg", resp.Header().Get("Content-Disposition"))
}

func Test_Live(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	test.Code(t, tEcho, req, 200)
}

func Test_validate(t *testing.T) {
	tests := []struct {
		name    string
		args    *Data
		wantErr bool
	}{
		{name: "OK", args: &Data{Reader: &mocks.Filer{}, NameProvider: &mocks.DB{}}, wantErr: false},
		{name: "Fail Reader", args: &Data{NameProvider: &mocks.DB{}}, wantErr: true},
		{name: "Fail Provider", args: &Data{Reader: &mocks.Filer{}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate(tt.args); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type testFileWrap struct {
	s string
	n string
}

// Read implements io.ReadSeekCloser
func (fw *testFileWrap) Read(p []byte) (n int, err error) {
	return strings.NewReader(fw.s).Read(p)
}

// Seek implements io.ReadSeekCloser
func (fw *testFileWrap) Seek(offset int64, whence int) (int64, error) {
	return strings.NewReader(fw.s).Seek(offset, whence)
}

// Close implements io.ReadSeekCloser
func (fw *testFileWrap) Close() error {
	return nil
}

// Stat returns file stat
func (fw *testFileWrap) Stat() (fs.FileInfo, error) {
	return &testStatsWrap{size: int64(len(fw.s)), name: fw.n}, nil
}

type testStatsWrap struct {
	size int64
	name string
}

// IsDir implements fs.FileInfo
func (sw *testStatsWrap) IsDir() bool {
	return false
}

// ModTime implements fs.FileInfo
func (sw *testStatsWrap) ModTime() time.Time {
	return time.Now()
}

// Mode implements fs.FileInfo
func (sw *testStatsWrap) Mode() fs.FileMode {
	return fs.ModeTemporary
}

// Name implements fs.FileInfo
func (sw *testStatsWrap) Name() string {
	return sw.name
}

// Size implements fs.FileInfo
func (sw *testStatsWrap) Size() int64 {
	return sw.size
}

// Sys implements fs.FileInfo
func (sw *testStatsWrap) Sys() any {
	return nil
}
