package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const (
	DefaultDeepLURL     = "https://api.deepl.com/v2/translate"
	DefaultDeepLFreeURL = "https://api-free.deepl.com/v2/translate"
)

// DeepL calls the DeepL v2 translate endpoint.
type DeepL struct {
	apiKey     string
	baseURL    string
	source     string
	target     string
	httpClient *http.Client
}

// NewDeepL builds a DeepL client. With no baseURL, free-tier keys (suffix
// ":fx") go to the free endpoint.
func NewDeepL(apiKey, baseURL string, langs Languages, timeout time.Duration) *DeepL {
	if baseURL == "" {
		baseURL = DefaultDeepLURL
		if strings.HasSuffix(apiKey, ":fx") {
			baseURL = DefaultDeepLFreeURL
		}
	}
	return &DeepL{
		apiKey:     apiKey,
		baseURL:    baseURL,
		source:     deeplLang(langs.Source, false),
		target:     deeplLang(langs.Target, true),
		httpClient: newHTTPClient(timeout),
	}
}

func (d *DeepL) Name() string { return "deepl" }

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

func (d *DeepL) Translate(ctx context.Context, text string) (string, error) {
	form := url.Values{
		"text":        {text},
		"target_lang": {d.target},
	}
	if d.source != "" {
		form.Set("source_lang", d.source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)

	status, body, err := roundTrip(d.httpClient, d.Name(), req)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &ProviderError{Backend: d.Name(), Status: status, Payload: string(body)}
	}

	var resp deeplResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Translations) == 0 {
		return "", &ProviderError{Backend: d.Name(), Status: status, Payload: string(body)}
	}
	return resp.Translations[0].Text, nil
}

// deeplLang maps a tag onto DeepL's upper-case codes. Target English and
// Portuguese need a regional variant.
func deeplLang(tag language.Tag, target bool) string {
	if tag == language.Und {
		return ""
	}
	base, _ := tag.Base()
	code := strings.ToUpper(base.String())
	if !target {
		return code
	}
	region, conf := tag.Region()
	switch code {
	case "EN":
		if conf == language.Exact && region.String() == "GB" {
			return "EN-GB"
		}
		return "EN-US"
	case "PT":
		if conf == language.Exact && region.String() == "PT" {
			return "PT-PT"
		}
		return "PT-BR"
	case "ZH":
		if script, _ := tag.Script(); script.String() == "Hant" {
			return "ZH-HANT"
		}
		return "ZH-HANS"
	}
	return code
}
