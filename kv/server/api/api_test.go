package api

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pingcap-incubator/nestkv/kv/config"
	"github.com/pingcap-incubator/nestkv/kv/server"
	"github.com/pingcap-incubator/nestkv/kv/storage"
	. "github.com/pingcap/check"
	"github.com/pingcap/errcode"
	"github.com/pingcap/log"
	"go.uber.org/zap/zapcore"
)

func TestAPI(t *testing.T) {
	TestingT(t)
}

var _ = Suite(&testAPISuite{})

type testAPISuite struct {
	svr       *server.Server
	mem       *storage.MemStorage
	httpSvr   *httptest.Server
	urlPrefix string
}

func (s *testAPISuite) SetUpTest(c *C) {
	s.mem = storage.NewMemStorage()
	s.svr = server.NewServer(config.NewTestConfig(), s.mem)
	s.httpSvr = httptest.NewServer(NewHandler(s.svr, config.APIConfig{}))
	s.urlPrefix = s.httpSvr.URL + apiPrefix
}

func (s *testAPISuite) TearDownTest(c *C) {
	s.httpSvr.Close()
	s.svr.Close()
}

func doRequest(c *C, method, url, body string) (int, http.Header, []byte) {
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	c.Assert(err, IsNil)
	resp, err := http.DefaultClient.Do(req)
	c.Assert(err, IsNil)
	defer resp.Body.Close()
	data, err := ioutil.ReadAll(resp.Body)
	c.Assert(err, IsNil)
	return resp.StatusCode, resp.Header, data
}

func (s *testAPISuite) mustGetValue(c *C, key string) string {
	status, _, body := doRequest(c, "GET", s.urlPrefix+"/kv/"+key, "")
	c.Assert(status, Equals, http.StatusOK, Commentf("body: %s", body))
	var kv KeyValue
	c.Assert(json.Unmarshal(body, &kv), IsNil)
	c.Assert(kv.Key, Equals, key)
	return kv.Value
}

func (s *testAPISuite) assertErrorCode(c *C, body []byte, code errcode.Code) {
	var resp errcode.JSONFormat
	c.Assert(json.Unmarshal(body, &resp), IsNil)
	c.Assert(resp.Code, Equals, code.CodeStr())
}

func (s *testAPISuite) TestPing(c *C) {
	status, _, _ := doRequest(c, "GET", s.httpSvr.URL+pingAPI, "")
	c.Assert(status, Equals, http.StatusOK)
}

func (s *testAPISuite) TestSetGetDelete(c *C) {
	status, _, body := doRequest(c, "PUT", s.urlPrefix+"/kv/a", `"1"`)
	c.Assert(status, Equals, http.StatusOK, Commentf("body: %s", body))
	c.Assert(s.mustGetValue(c, "a"), Equals, "1")

	status, _, _ = doRequest(c, "POST", s.urlPrefix+"/kv/a", `"2"`)
	c.Assert(status, Equals, http.StatusOK)
	c.Assert(s.mustGetValue(c, "a"), Equals, "2")

	status, _, _ = doRequest(c, "DELETE", s.urlPrefix+"/kv/a", "")
	c.Assert(status, Equals, http.StatusOK)

	status, header, body := doRequest(c, "GET", s.urlPrefix+"/kv/a", "")
	c.Assert(status, Equals, http.StatusNotFound)
	c.Assert(header.Get("NestKV-Error-Code"), Equals, errcode.NotFoundCode.CodeStr().String())
	s.assertErrorCode(c, body, errcode.NotFoundCode)

	// Deleting an absent key is fine.
	status, _, _ = doRequest(c, "DELETE", s.urlPrefix+"/kv/a", "")
	c.Assert(status, Equals, http.StatusOK)
}

func (s *testAPISuite) TestEmptyValue(c *C) {
	status, _, _ := doRequest(c, "PUT", s.urlPrefix+"/kv/empty", `""`)
	c.Assert(status, Equals, http.StatusOK)
	c.Assert(s.mustGetValue(c, "empty"), Equals, "")
}

func (s *testAPISuite) TestKeyWithSlash(c *C) {
	status, _, _ := doRequest(c, "PUT", s.urlPrefix+"/kv/a/b", `"c"`)
	c.Assert(status, Equals, http.StatusOK)
	c.Assert(s.mustGetValue(c, "a/b"), Equals, "c")

	val, ok := s.mem.Get([]byte("a/b"))
	c.Assert(ok, IsTrue)
	c.Assert(string(val), Equals, "c")
}

func (s *testAPISuite) TestKeyPathNotCleaned(c *C) {
	for _, key := range []string{"a//b", "a/../b", "./x", "a/./b", "trailing/"} {
		status, _, body := doRequest(c, "PUT", s.urlPrefix+"/kv/"+key, `"v"`)
		c.Assert(status, Equals, http.StatusOK, Commentf("key %q body: %s", key, body))
		c.Assert(s.mustGetValue(c, key), Equals, "v")

		_, ok := s.mem.Get([]byte(key))
		c.Assert(ok, IsTrue, Commentf("key %q", key))
	}
	_, ok := s.mem.Get([]byte("b"))
	c.Assert(ok, IsFalse)
	_, ok = s.mem.Get([]byte("x"))
	c.Assert(ok, IsFalse)
}

func (s *testAPISuite) TestEscapedKey(c *C) {
	status, _, _ := doRequest(c, "PUT", s.urlPrefix+"/kv/c%2Fd", `"1"`)
	c.Assert(status, Equals, http.StatusOK)
	status, _, _ = doRequest(c, "PUT", s.urlPrefix+"/kv/100%25", `"2"`)
	c.Assert(status, Equals, http.StatusOK)

	val, ok := s.mem.Get([]byte("c/d"))
	c.Assert(ok, IsTrue)
	c.Assert(string(val), Equals, "1")
	val, ok = s.mem.Get([]byte("100%"))
	c.Assert(ok, IsTrue)
	c.Assert(string(val), Equals, "2")

	status, _, body := doRequest(c, "GET", s.urlPrefix+"/kv/c%2Fd", "")
	c.Assert(status, Equals, http.StatusOK)
	var kv KeyValue
	c.Assert(json.Unmarshal(body, &kv), IsNil)
	c.Assert(kv, DeepEquals, KeyValue{Key: "c/d", Value: "1"})

	status, _, _ = doRequest(c, "DELETE", s.urlPrefix+"/kv/100%25", "")
	c.Assert(status, Equals, http.StatusOK)
	_, ok = s.mem.Get([]byte("100%"))
	c.Assert(ok, IsFalse)
}

func (s *testAPISuite) TestBadValue(c *C) {
	for _, body := range []string{`null`, `1`, `{"value":"1"}`, `"unterminated`} {
		status, _, resp := doRequest(c, "PUT", s.urlPrefix+"/kv/k", body)
		c.Assert(status, Equals, http.StatusBadRequest, Commentf("body: %s", body))
		s.assertErrorCode(c, resp, errcode.InvalidInputCode)
	}
	c.Assert(s.mem.Len(), Equals, 0)
}

func (s *testAPISuite) TestTransactions(c *C) {
	status, _, _ := doRequest(c, "PUT", s.urlPrefix+"/kv/x", `"1"`)
	c.Assert(status, Equals, http.StatusOK)

	status, _, body := doRequest(c, "POST", s.urlPrefix+"/txn/begin", "")
	c.Assert(status, Equals, http.StatusOK)
	var st server.Status
	c.Assert(json.Unmarshal(body, &st), IsNil)
	c.Assert(st.Depth, Equals, 1)

	doRequest(c, "PUT", s.urlPrefix+"/kv/x", `"2"`)
	doRequest(c, "POST", s.urlPrefix+"/txn/begin", "")
	doRequest(c, "DELETE", s.urlPrefix+"/kv/x", "")
	status, _, _ = doRequest(c, "GET", s.urlPrefix+"/kv/x", "")
	c.Assert(status, Equals, http.StatusNotFound)

	status, _, _ = doRequest(c, "POST", s.urlPrefix+"/txn/rollback", "")
	c.Assert(status, Equals, http.StatusOK)
	c.Assert(s.mustGetValue(c, "x"), Equals, "2")

	status, _, body = doRequest(c, "POST", s.urlPrefix+"/txn/commit", "")
	c.Assert(status, Equals, http.StatusOK)
	c.Assert(json.Unmarshal(body, &st), IsNil)
	c.Assert(st.Depth, Equals, 0)
	c.Assert(s.mustGetValue(c, "x"), Equals, "2")

	val, ok := s.mem.Get([]byte("x"))
	c.Assert(ok, IsTrue)
	c.Assert(string(val), Equals, "2")
}

func (s *testAPISuite) TestNoActiveTransaction(c *C) {
	for _, cmd := range []string{"commit", "rollback"} {
		status, header, body := doRequest(c, "POST", fmt.Sprintf("%s/txn/%s", s.urlPrefix, cmd), "")
		c.Assert(status, Equals, http.StatusConflict)
		c.Assert(header.Get("NestKV-Error-Code"), Equals, NoActiveTransactionCode.CodeStr().String())
		s.assertErrorCode(c, body, NoActiveTransactionCode)
	}
}

func (s *testAPISuite) TestCapacityExceeded(c *C) {
	for i := 0; i < config.NewTestConfig().Txn.MaxDepth; i++ {
		status, _, _ := doRequest(c, "POST", s.urlPrefix+"/txn/begin", "")
		c.Assert(status, Equals, http.StatusOK)
	}
	status, _, body := doRequest(c, "POST", s.urlPrefix+"/txn/begin", "")
	c.Assert(status, Equals, http.StatusRequestEntityTooLarge)
	s.assertErrorCode(c, body, CapacityExceededCode)
}

func (s *testAPISuite) TestStatus(c *C) {
	doRequest(c, "PUT", s.urlPrefix+"/kv/a", `"1"`)
	doRequest(c, "POST", s.urlPrefix+"/txn/begin", "")
	doRequest(c, "PUT", s.urlPrefix+"/kv/b", `"22"`)

	status, _, body := doRequest(c, "GET", s.urlPrefix+"/status", "")
	c.Assert(status, Equals, http.StatusOK)
	var st server.Status
	c.Assert(json.Unmarshal(body, &st), IsNil)
	c.Assert(st.Depth, Equals, 1)
	c.Assert(st.CommittedKeys, Equals, 1)
	c.Assert(st.PendingKeys, Equals, 1)
	c.Assert(uint64(st.PendingSize), Equals, uint64(3))
}

func (s *testAPISuite) TestClosed(c *C) {
	s.svr.Close()
	status, _, body := doRequest(c, "GET", s.urlPrefix+"/kv/a", "")
	c.Assert(status, Equals, http.StatusServiceUnavailable)
	s.assertErrorCode(c, body, ServerClosedCode)

	status, _, _ = doRequest(c, "GET", s.urlPrefix+"/status", "")
	c.Assert(status, Equals, http.StatusServiceUnavailable)
}

func (s *testAPISuite) TestLogLevel(c *C) {
	defer log.SetLevel(zapcore.InfoLevel)

	status, _, _ := doRequest(c, "POST", s.urlPrefix+"/admin/log", `"debug"`)
	c.Assert(status, Equals, http.StatusOK)

	status, _, body := doRequest(c, "POST", s.urlPrefix+"/admin/log", `"chatty"`)
	c.Assert(status, Equals, http.StatusBadRequest)
	s.assertErrorCode(c, body, errcode.InvalidInputCode)
}

func (s *testAPISuite) TestMetrics(c *C) {
	doRequest(c, "POST", s.urlPrefix+"/txn/begin", "")
	status, _, body := doRequest(c, "GET", s.httpSvr.URL+"/metrics", "")
	c.Assert(status, Equals, http.StatusOK)
	c.Assert(strings.Contains(string(body), "nestkv_txn_command_total"), IsTrue)
}

var _ = Suite(&testRateLimitSuite{})

type testRateLimitSuite struct{}

func (s *testRateLimitSuite) TestRateLimit(c *C) {
	svr := server.NewServer(config.NewTestConfig(), storage.NewMemStorage())
	defer svr.Close()
	// One token that is never refilled during the test.
	httpSvr := httptest.NewServer(NewHandler(svr, config.APIConfig{RateLimit: 0.0001, RateBurst: 1}))
	defer httpSvr.Close()

	status, _, _ := doRequest(c, "GET", httpSvr.URL+pingAPI, "")
	c.Assert(status, Equals, http.StatusOK)
	status, _, _ = doRequest(c, "GET", httpSvr.URL+pingAPI, "")
	c.Assert(status, Equals, http.StatusTooManyRequests)
}
