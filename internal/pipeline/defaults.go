package pipeline

import (
	"io"
	"log/slog"
	"time"

	"github.com/dgallion1/doctran/internal/config"
	"github.com/dgallion1/doctran/internal/parser"
	"github.com/dgallion1/doctran/internal/ratelimit"
	"github.com/dgallion1/doctran/internal/translate"
)

// Deps are the shared collaborators of the stock variants.
type Deps struct {
	Limits      *ratelimit.Registry
	Stats       *translate.StatsSet
	Diagnostics *Diagnostics
	Log         *slog.Logger
}

// NewDefaultRegistry registers every stock variant, configured from cfg.
// Backend credentials are not checked here; see config.ValidateBackend.
func NewDefaultRegistry(cfg config.Config, deps Deps) (*Registry, error) {
	langs, err := translate.ParseLanguages(cfg.SourceLang, cfg.TargetLang)
	if err != nil {
		return nil, err
	}
	if deps.Limits == nil {
		deps.Limits = ratelimit.Default
	}
	if deps.Stats == nil {
		deps.Stats = translate.NewStatsSet(time.Hour)
	}
	if deps.Log == nil {
		deps.Log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	r := NewRegistry()

	r.MustRegister(StageParse, "rst", &parser.RSTParser{})
	r.MustRegister(StageParse, "markdown", &parser.MarkdownParser{})
	r.MustRegister(StageParse, "html", &parser.HTMLParser{})
	r.MustRegister(StageParse, "text", &parser.TextParser{})
	r.MustRegister(StageParse, "csv", &parser.CSVParser{})
	r.MustRegister(StageParse, "docx", &parser.DOCXParser{})
	r.MustRegister(StageParse, "pdf", &parser.PDFParser{FallbackPdftotext: cfg.PDFFallbackPdftotext})

	r.MustRegister(StageProcess, "complete", CompleteProcessor{})
	r.MustRegister(StageProcess, "sequential", SequentialProcessor{})

	r.MustRegister(StageFilterWork, "default", DefaultWorkFilter)
	r.MustRegister(StageFilterWork, "strict", NewStrictWorkFilter(langs.Target))

	r.MustRegister(StageFilterProcess, "default", DefaultTraversalFilter)
	r.MustRegister(StageFilterProcess, "prose", ProseTraversalFilter)

	opts := WorkerOptions{
		Limits:      deps.Limits,
		Stats:       deps.Stats,
		Diagnostics: deps.Diagnostics,
		Timeout:     cfg.RequestTimeout,
		Log:         deps.Log,
	}
	perSecond := func(n int) Limit { return Limit{Requests: n, Per: time.Second} }

	r.MustRegister(StageWork, "baidu_fanyi", NewRateLimitedWorker(
		translate.NewBaidu(cfg.BaiduAppID, cfg.BaiduSecret, cfg.BaiduURL, langs, cfg.RequestTimeout),
		perSecond(cfg.BaiduMaxRPS), opts))
	r.MustRegister(StageWork, "deepl", NewRateLimitedWorker(
		translate.NewDeepL(cfg.DeepLAPIKey, cfg.DeepLURL, langs, cfg.RequestTimeout),
		perSecond(cfg.DeepLMaxRPS), opts))
	r.MustRegister(StageWork, "claude", NewRateLimitedWorker(
		translate.NewClaude(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicURL, langs, cfg.RequestTimeout),
		perSecond(cfg.AnthropicMaxRPS), opts))
	r.MustRegister(StageWork, "pseudo", NewRateLimitedWorker(translate.Pseudo{}, perSecond(cfg.PseudoMaxRPS), opts))
	r.MustRegister(StageWork, "noop", NoopWorker)

	r.MustRegister(StageRender, "json", JSONRenderer{})

	return r, nil
}
