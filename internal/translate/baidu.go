package translate

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// DefaultBaiduURL is the Baidu Fanyi general translation endpoint.
const DefaultBaiduURL = "https://fanyi-api.baidu.com/api/trans/vip/translate"

// Baidu calls the Baidu Fanyi API. Requests are signed with
// md5(appid + q + salt + secret).
type Baidu struct {
	appID      string
	secret     string
	baseURL    string
	from, to   string
	httpClient *http.Client
	now        func() time.Time
}

func NewBaidu(appID, secret, baseURL string, langs Languages, timeout time.Duration) *Baidu {
	if baseURL == "" {
		baseURL = DefaultBaiduURL
	}
	return &Baidu{
		appID:      appID,
		secret:     secret,
		baseURL:    baseURL,
		from:       baiduLang(langs.Source),
		to:         baiduLang(langs.Target),
		httpClient: newHTTPClient(timeout),
		now:        time.Now,
	}
}

func (b *Baidu) Name() string { return "baidu_fanyi" }

type baiduResponse struct {
	From        string `json:"from"`
	To          string `json:"to"`
	TransResult []struct {
		Src string `json:"src"`
		Dst string `json:"dst"`
	} `json:"trans_result"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Translate sends text as one query. Baidu splits multi-line queries into
// one result per line; the results are joined back with newlines.
func (b *Baidu) Translate(ctx context.Context, text string) (string, error) {
	salt := strconv.FormatInt(b.now().UnixMilli(), 10)
	params := url.Values{
		"q":     {text},
		"from":  {b.from},
		"to":    {b.to},
		"appid": {b.appID},
		"salt":  {salt},
		"sign":  {b.sign(text, salt)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	status, body, err := roundTrip(b.httpClient, b.Name(), req)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &ProviderError{Backend: b.Name(), Status: status, Payload: string(body)}
	}

	var resp baiduResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &ProviderError{Backend: b.Name(), Status: status, Payload: string(body)}
	}
	// Success responses either omit error_code or send "52000".
	if resp.ErrorCode != "" && resp.ErrorCode != "52000" {
		return "", &ProviderError{Backend: b.Name(), Status: status, Payload: string(body)}
	}
	if len(resp.TransResult) == 0 {
		return "", &ProviderError{Backend: b.Name(), Status: status, Payload: string(body)}
	}

	lines := make([]string, len(resp.TransResult))
	for i, r := range resp.TransResult {
		lines[i] = r.Dst
	}
	return strings.Join(lines, "\n"), nil
}

func (b *Baidu) sign(q, salt string) string {
	sum := md5.Sum([]byte(b.appID + q + salt + b.secret))
	return hex.EncodeToString(sum[:])
}

// baiduCodes covers the languages whose Baidu code differs from ISO 639-1.
var baiduCodes = map[string]string{
	"ja": "jp",
	"ko": "kor",
	"fr": "fra",
	"es": "spa",
	"ar": "ara",
	"bg": "bul",
	"et": "est",
	"da": "dan",
	"fi": "fin",
	"ro": "rom",
	"sl": "slo",
	"sv": "swe",
	"vi": "vie",
}

func baiduLang(tag language.Tag) string {
	if tag == language.Und {
		return "auto"
	}
	base, _ := tag.Base()
	code := base.String()
	if code == "zh" {
		if script, _ := tag.Script(); script.String() == "Hant" {
			return "cht"
		}
		if region, _ := tag.Region(); region.String() == "TW" || region.String() == "HK" {
			return "cht"
		}
	}
	if mapped, ok := baiduCodes[code]; ok {
		return mapped
	}
	return code
}
