// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"

	"github.com/pdiddy/policy-feed/internal/httputil"
	"github.com/pdiddy/policy-feed/pkg/types"
)

// --- helpers ---

// stubClient serves pages from a fixed list of page sizes.
type stubClient struct {
	sizes []int
	calls []int
	err   error
}

func (s *stubClient) Name() string           { return "stub" }
func (s *stubClient) Type() types.SourceType { return types.SourceNews }

func (s *stubClient) FetchPage(_ context.Context, page, _ int) ([]RawItem, error) {
	s.calls = append(s.calls, page)
	if s.err != nil {
		return nil, s.err
	}
	if page > len(s.sizes) {
		return nil, nil
	}
	items := make([]RawItem, s.sizes[page-1])
	for i := range items {
		items[i] = RawItem{"id": fmt.Sprintf("%d-%d", page, i)}
	}
	return items, nil
}

func (s *stubClient) FetchDetail(context.Context, string) (RawItem, error) { return nil, nil }

func noPageSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	old := pageSleep
	pageSleep = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { pageSleep = old })
	return &slept
}

func testSourceConfig(baseURL string) types.SourceConfig {
	return types.SourceConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:    5 * time.Second,
			UserAgent:  "test/0.1",
			MaxRetries: 3,
			RetryDelay: 0,
		},
		Enabled:      true,
		BaseURL:      baseURL,
		DetailURL:    baseURL + "/detail",
		APIKey:       "test-key",
		PageSize:     100,
		MaxPages:     10,
		LookbackDays: 3,
	}
}

// --- Paginate ---

func TestPaginate_ShortPageTerminates(t *testing.T) {
	slept := noPageSleep(t)
	c := &stubClient{sizes: []int{100, 100, 42, 0}}

	res, err := Paginate(context.Background(), c, PageOptions{PageSize: 100, MaxPages: 10, Delay: 100 * time.Millisecond}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Requests)
	assert.Len(t, res.Items, 242)
	assert.Equal(t, []int{1, 2, 3}, c.calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, *slept)

	// Fetch order is preserved.
	assert.Equal(t, "1-0", res.Items[0].Get("id"))
	assert.Equal(t, "3-41", res.Items[241].Get("id"))
}

func TestPaginate_EmptyPageTerminates(t *testing.T) {
	noPageSleep(t)
	c := &stubClient{sizes: []int{10, 10}}

	res, err := Paginate(context.Background(), c, PageOptions{PageSize: 10}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Requests)
	assert.Len(t, res.Items, 20)
}

func TestPaginate_MaxPagesCap(t *testing.T) {
	slept := noPageSleep(t)
	c := &stubClient{sizes: []int{5, 5, 5, 5, 5, 5}}

	res, err := Paginate(context.Background(), c, PageOptions{PageSize: 5, MaxPages: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Requests)
	assert.Len(t, res.Items, 10)
	assert.Len(t, *slept, 1, "no delay after the final capped page")
}

func TestPaginate_NeverExceedsMaxPages(t *testing.T) {
	noPageSleep(t)
	for maxPages := 1; maxPages <= 5; maxPages++ {
		for _, size := range []int{1, 7, 100} {
			sizes := make([]int, 20)
			for i := range sizes {
				sizes[i] = size
			}
			c := &stubClient{sizes: sizes}
			res, err := Paginate(context.Background(), c, PageOptions{PageSize: size, MaxPages: maxPages}, nil)
			require.NoError(t, err)
			assert.LessOrEqual(t, res.Requests, maxPages)
		}
	}
}

func TestPaginate_ErrorReturnsPartialItems(t *testing.T) {
	noPageSleep(t)
	boom := errors.New("boom")
	c := &failingAfter{stubClient: stubClient{sizes: []int{3, 3, 3}}, failOn: 2, err: boom}

	res, err := Paginate(context.Background(), c, PageOptions{PageSize: 3}, nil)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "page 2")
	assert.Len(t, res.Items, 3)
	assert.Equal(t, 1, res.Requests)
}

func TestPaginate_RejectsNonPositivePageSize(t *testing.T) {
	_, err := Paginate(context.Background(), &stubClient{}, PageOptions{PageSize: 0}, nil)
	assert.Error(t, err)
}

type failingAfter struct {
	stubClient
	failOn int
	err    error
}

func (f *failingAfter) FetchPage(ctx context.Context, page, size int) ([]RawItem, error) {
	if page == f.failOn {
		return nil, f.err
	}
	return f.stubClient.FetchPage(ctx, page, size)
}

// --- Envelope ---

func TestDecode_SingleAndRepeatedItems(t *testing.T) {
	env := Envelope{Root: "wantedList", CodePaths: []string{"resultCode"}, SuccessCodes: []string{"0"}, ItemPath: "servList"}

	single := `<wantedList><resultCode>0</resultCode><servList><servId>A1</servId><servNm>one</servNm></servList></wantedList>`
	items, err := env.Decode("welfare", []byte(single))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A1", items[0].Get("servId"))

	repeated := `<wantedList><resultCode>0</resultCode>
		<servList><servId>A1</servId></servList>
		<servList><servId>A2</servId></servList>
	</wantedList>`
	items, err = env.Decode("welfare", []byte(repeated))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "A2", items[1].Get("servId"))
}

func TestDecode_NestedAndRepeatedFields(t *testing.T) {
	env := Envelope{Root: "r", ItemPath: "item"}
	body := `<r><item><id> 7 </id><tag>a</tag><tag>b</tag><meta><ministry>MOEL</ministry></meta></item></r>`

	items, err := env.Decode("x", []byte(body))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "7", items[0].Get("id"))
	assert.Equal(t, "a, b", items[0].Get("tag"))
	assert.Equal(t, "MOEL", items[0].Get("meta/ministry"))
}

func TestDecode_ProtocolErrors(t *testing.T) {
	env := Envelope{
		Root:         "response",
		CodePaths:    []string{"header/resultCode"},
		SuccessCodes: []string{"00"},
		MessagePaths: []string{"header/resultMsg"},
		ItemPath:     "body/NewsItem",
	}

	tests := []struct {
		name     string
		body     string
		wantCode string
		wantMsg  string
	}{
		{"malformed", `<response><header>`, "", "malformed XML"},
		{"wrong root", `<other/>`, "", "unexpected root"},
		{"missing code", `<response><header/></response>`, "", "no result code"},
		{"non-success code", `<response><header><resultCode>22</resultCode><resultMsg>LIMITED</resultMsg></header></response>`, "22", "LIMITED"},
		{"gateway error", `<OpenAPI_ServiceResponse><cmmMsgHeader><errMsg>SERVICE ERROR</errMsg><returnAuthMsg>SERVICE_KEY_IS_NOT_REGISTERED_ERROR</returnAuthMsg><returnReasonCode>30</returnReasonCode></cmmMsgHeader></OpenAPI_ServiceResponse>`, "30", "SERVICE_KEY_IS_NOT_REGISTERED_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Decode("news", []byte(tt.body))
			var pe *ProtocolError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantCode, pe.Code)
			assert.Contains(t, pe.Error(), tt.wantMsg)
		})
	}
}

func TestDecode_NoItemsIsEmpty(t *testing.T) {
	env := Envelope{Root: "response", CodePaths: []string{"header/resultCode"}, SuccessCodes: []string{"00"}, ItemPath: "body/NewsItem"}
	items, err := env.Decode("news", []byte(`<response><header><resultCode>00</resultCode></header><body/></response>`))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDecode_EUCKR(t *testing.T) {
	title, err := korean.EUCKR.NewEncoder().String("청년 정책")
	require.NoError(t, err)
	body := `<?xml version="1.0" encoding="EUC-KR"?><youthPolicyList><youthPolicy><polyBizSjnm>` + title + `</polyBizSjnm></youthPolicy></youthPolicyList>`

	items, err := Envelope{Root: "youthPolicyList", ItemPath: "youthPolicy"}.Decode("youth", []byte(body))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "청년 정책", items[0].Get("polyBizSjnm"))
}

// --- Concrete clients ---

func newsPage(n int) string {
	var b strings.Builder
	b.WriteString(`<response><header><resultCode>0</resultCode><resultMsg>NORMAL SERVICE.</resultMsg></header><body>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<NewsItem><NewsItemId>%d</NewsItemId><Title>title %d</Title></NewsItem>`, i, i)
	}
	b.WriteString(`</body></response>`)
	return b.String()
}

func TestNewsClient_PaginatesOverHTTP(t *testing.T) {
	noPageSleep(t)
	sizes := map[string]int{"1": 100, "2": 100, "3": 42}
	var requests int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("serviceKey"))
		assert.Equal(t, "100", q.Get("numOfRows"))
		assert.Equal(t, "20261012", q.Get("startDate"))
		assert.Equal(t, "20261015", q.Get("endDate"))
		fmt.Fprint(w, newsPage(sizes[q.Get("pageNo")]))
	}))
	defer ts.Close()

	c := NewNewsClient(testSourceConfig(ts.URL), ts.Client(), nil)
	c.setClock(func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) })

	res, err := Paginate(context.Background(), c, PageOptions{PageSize: 100, MaxPages: 10}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Requests)
	assert.Len(t, res.Items, 242)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
	assert.Equal(t, "title 41", res.Items[241].Get("Title"))
}

func TestNewsClient_ProtocolErrorNotRetried(t *testing.T) {
	var requests int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&requests, 1)
		fmt.Fprint(w, `<response><header><resultCode>30</resultCode><resultMsg>SERVICE KEY IS NOT REGISTERED ERROR.</resultMsg></header></response>`)
	}))
	defer ts.Close()

	c := NewNewsClient(testSourceConfig(ts.URL), ts.Client(), nil)
	_, err := c.FetchPage(context.Background(), 1, 10)

	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "30", pe.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestNewsClient_TransportErrorRetried(t *testing.T) {
	var requests int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewNewsClient(testSourceConfig(ts.URL), ts.Client(), nil)
	_, err := c.FetchPage(context.Background(), 1, 10)

	var te *httputil.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 3, te.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestNewsClient_InvalidPageRequest(t *testing.T) {
	c := NewNewsClient(testSourceConfig("http://127.0.0.1:0"), nil, nil)
	_, err := c.FetchPage(context.Background(), 0, 10)
	assert.Error(t, err)
	_, err = c.FetchPage(context.Background(), 1, 0)
	assert.Error(t, err)
}

func TestWelfareClient_ListAndDetail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if strings.HasSuffix(r.URL.Path, "/detail") {
			assert.Equal(t, "D", q.Get("callTp"))
			assert.Equal(t, "WLF00001", q.Get("servId"))
			fmt.Fprint(w, `<wantedDtl><resultCode>0</resultCode><servId>WLF00001</servId><servNm>긴급복지</servNm><tgtrDtlCn>위기가구</tgtrDtlCn></wantedDtl>`)
			return
		}
		assert.Equal(t, "L", q.Get("callTp"))
		assert.Equal(t, "001", q.Get("srchKeyCode"))
		fmt.Fprint(w, `<wantedList><totalCount>1</totalCount><resultCode>0</resultCode><resultMessage>SUCCESS</resultMessage><servList><servId>WLF00001</servId><servNm>긴급복지</servNm></servList></wantedList>`)
	}))
	defer ts.Close()

	c := NewWelfareClient(testSourceConfig(ts.URL), ts.Client(), nil)
	assert.Equal(t, types.SourceWelfare, c.Type())

	items, err := c.FetchPage(context.Background(), 1, 100)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "WLF00001", items[0].Get("servId"))

	detail, err := c.FetchDetail(context.Background(), "WLF00001")
	require.NoError(t, err)
	assert.Equal(t, "위기가구", detail.Get("tgtrDtlCn"))
}

func TestYouthClient_NoResultCode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("openApiVlak"))
		n, _ := strconv.Atoi(q.Get("pageIndex"))
		fmt.Fprintf(w, `<youthPolicyList><pageIndex>%d</pageIndex><totalCnt>1</totalCnt><youthPolicy><bizId>R2026</bizId><polyBizSjnm>청년 월세</polyBizSjnm></youthPolicy></youthPolicyList>`, n)
	}))
	defer ts.Close()

	c := NewYouthClient(testSourceConfig(ts.URL), ts.Client(), nil)
	items, err := c.FetchPage(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "R2026", items[0].Get("bizId"))
}

func TestFetchDetail_NotConfigured(t *testing.T) {
	cfg := testSourceConfig("http://127.0.0.1:0")
	cfg.DetailURL = ""
	_, err := NewYouthClient(cfg, nil, nil).FetchDetail(context.Background(), "x")
	assert.Error(t, err)
}

func TestNewClients_OnlyEnabled(t *testing.T) {
	cfg := types.DefaultPipelineConfig().Sources
	cfg.Youth.Enabled = false
	clients := NewClients(cfg, nil)

	var names []string
	for _, c := range clients {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"news", "welfare"}, names)
}
