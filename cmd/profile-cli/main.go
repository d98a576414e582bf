// Package main is the profile wizard CLI: questionnaire answers and a photo
// directory in, a finished profile bundle (bio + best photos) out.
//
// Examples:
//
//	profile-cli --photos ./camera-roll --name Sam --age 29 --gender man --interested-in women
//	profile-cli --photos ./pics --answers answers.json --vibe 80 --location Lisbon --visiting
//	profile-cli --photos ./pics --answers answers.json --refine "shorter" --refine "less formal"
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/magify/flame-enhancer/internal/archive"
	"github.com/magify/flame-enhancer/internal/bio"
	"github.com/magify/flame-enhancer/internal/boot"
	"github.com/magify/flame-enhancer/internal/cloudinary"
	"github.com/magify/flame-enhancer/internal/config"
	"github.com/magify/flame-enhancer/internal/export"
	"github.com/magify/flame-enhancer/internal/gateway"
	"github.com/magify/flame-enhancer/internal/logging"
	"github.com/magify/flame-enhancer/internal/payload"
	"github.com/magify/flame-enhancer/internal/questionnaire"
	"github.com/magify/flame-enhancer/internal/submit"
	"github.com/magify/flame-enhancer/internal/wizard"
)

var (
	photosFlag  string
	answersFlag string
	outFlag     string

	nameFlag         string
	ageFlag          int
	genderFlag       string
	interestedInFlag string
	workFlag         string
	hobbiesFlag      string
	lookingForFlag   string
	funFactFlag      string

	vibeFlag           int
	goalFlag           int
	sophisticationFlag int
	locationFlag       string
	visitingFlag       bool
	simpleFlag         bool

	picksFlag    int
	providerFlag string
	refineFlags  []string
)

var rootCmd = &cobra.Command{
	Use:   "profile-cli",
	Short: "AI-assisted dating profile builder",
	Long: `profile-cli runs the whole profile wizard in one shot: it re-encodes and
submits your photos, has the model pick the strongest ones, writes a bio in
your chosen tone, optionally refines it, and bundles everything into a ZIP.

Photos travel through the CDN when one is configured and inline otherwise;
the result is the same either way.`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&photosFlag, "photos", "p", "", "Directory containing candidate photos (required)")
	rootCmd.Flags().StringVarP(&answersFlag, "answers", "a", "", "JSON file with questionnaire answers")
	rootCmd.Flags().StringVarP(&outFlag, "out", "o", "profile.zip", "Output bundle path")

	rootCmd.Flags().StringVar(&nameFlag, "name", "", "First name")
	rootCmd.Flags().IntVar(&ageFlag, "age", 0, "Age")
	rootCmd.Flags().StringVar(&genderFlag, "gender", "", "Gender")
	rootCmd.Flags().StringVar(&interestedInFlag, "interested-in", "", "Who the profile is for")
	rootCmd.Flags().StringVar(&workFlag, "work", "", "What you do")
	rootCmd.Flags().StringVar(&hobbiesFlag, "hobbies", "", "Hobbies and interests")
	rootCmd.Flags().StringVar(&lookingForFlag, "looking-for", "", "What you are looking for")
	rootCmd.Flags().StringVar(&funFactFlag, "fun-fact", "", "A fun fact about you")

	rootCmd.Flags().IntVar(&vibeFlag, "vibe", 50, "Tone slider 0-100: sincere to witty")
	rootCmd.Flags().IntVar(&goalFlag, "goal", 50, "Goal slider 0-100: casual to serious")
	rootCmd.Flags().IntVar(&sophisticationFlag, "sophistication", 50, "Language slider 0-100: plain to polished")
	rootCmd.Flags().StringVar(&locationFlag, "location", "", "City for the profile")
	rootCmd.Flags().BoolVar(&visitingFlag, "visiting", false, "Visiting the location rather than living there")
	rootCmd.Flags().BoolVar(&simpleFlag, "simple-language", false, "Force plain, everyday wording")

	rootCmd.Flags().IntVar(&picksFlag, "picks", questionnaire.DefaultPickCount, "How many photos to select")
	rootCmd.Flags().StringVar(&providerFlag, "provider", "", "LLM provider: gemini or openai (default from environment)")
	rootCmd.Flags().StringArrayVar(&refineFlags, "refine", nil, "Bio refinement instruction (repeatable, max 2)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	logging.Init()
	cfg := config.Load()

	if photosFlag == "" {
		log.Fatal().Msg("--photos is required")
	}
	answers := loadAnswers()
	if err := answers.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Questionnaire answers are incomplete")
	}

	files := loadPhotoDir(photosFlag)
	if err := questionnaire.ValidatePhotoCount(len(files)); err != nil {
		log.Fatal().Err(err).Msg("Photo batch rejected")
	}

	llm := buildInvoker(cfg)
	pipeline := submit.NewPipeline(cloudinary.NewClient(cfg.Cloudinary), payload.DefaultBudget())
	w := wizard.New(llm, pipeline, providerOr(cfg))
	w.SetPickCount(picksFlag)

	exporter := buildExporter(cfg)

	boot.StartupLog("profile-cli", initStart).
		Config("provider", providerOr(cfg)).
		Feature("cloudinary", cfg.Cloudinary.Configured()).
		Feature("relay", cfg.GatewayURL != "").
		Feature("s3Export", exporter != nil).
		Log()

	ctx := context.Background()
	sess := wizard.NewSession(answers)

	fmt.Println()
	fmt.Println("============================================")
	fmt.Println("💘 Profile Wizard")
	fmt.Println("============================================")
	fmt.Printf("Photos found: %d\n", len(files))
	fmt.Printf("Will select:  %d\n", wizardPickCount(len(files)))
	fmt.Println("--------------------------------------------")

	fmt.Println("⏳ Preparing and submitting photos...")
	err := w.SubmitPhotos(ctx, sess, files, func(frac float64) {
		fmt.Printf("\r   upload progress: %3.0f%%", frac*100)
	})
	fmt.Println()
	if err != nil {
		log.Fatal().Err(err).Msg("Photo submission failed")
	}
	if sess.Inline {
		fmt.Println("   (no CDN configured, photos sent inline)")
	}

	fmt.Println("⏳ Analyzing photos...")
	if err := w.Analyze(ctx, sess); err != nil {
		if errors.Is(err, wizard.ErrAnalysisTimeout) {
			log.Fatal().Msg(err.Error())
		}
		log.Fatal().Err(err).Msg("Photo analysis failed")
	}

	fmt.Println("✅ Selected photos:")
	for i, pick := range sess.Picks {
		fmt.Printf("   %d. %s: %s\n", i+1, pick.Photo.Filename, pick.Reason)
	}
	fmt.Println("--------------------------------------------")

	fmt.Println("⏳ Writing bio...")
	settings := bio.Settings{
		Vibe:           vibeFlag,
		Goal:           goalFlag,
		Sophistication: sophisticationFlag,
		Location:       locationFlag,
		Visiting:       visitingFlag,
		SimpleLanguage: simpleFlag,
	}
	if err := w.GenerateBio(ctx, sess, settings); err != nil {
		log.Fatal().Err(err).Msg("Bio generation failed")
	}

	for _, instruction := range refineFlags {
		fmt.Printf("⏳ Refining bio: %q\n", instruction)
		if err := w.RefineBio(ctx, sess, instruction); err != nil {
			if errors.Is(err, bio.ErrRefinementLimit) {
				fmt.Printf("   ⚠️  %v\n", err)
				break
			}
			log.Fatal().Err(err).Msg("Bio refinement failed")
		}
	}

	fmt.Println()
	fmt.Println("📝 Bio:")
	fmt.Println(sess.Bio)
	fmt.Println("--------------------------------------------")

	fmt.Println("⏳ Enhancing photos and writing bundle...")
	for _, outcome := range w.EnhancePicks(sess) {
		if outcome.Err != nil {
			fmt.Printf("   ⚠️  %v\n", outcome.Err)
		}
	}
	bundlePath := writeBundle(sess)
	fmt.Printf("✅ Profile bundle written to %s\n", bundlePath)

	if exporter != nil {
		link, err := exporter.Upload(ctx, sess.ID.String(), mustReadFile(bundlePath))
		if err != nil {
			log.Warn().Err(err).Msg("S3 export failed, local bundle is intact")
		} else {
			fmt.Printf("🔗 Download link (24h): %s\n", link)
		}
	}
	fmt.Println("============================================")
}

// providerOr returns the explicit provider flag or the environment default.
func providerOr(cfg config.Config) string {
	if providerFlag != "" {
		return providerFlag
	}
	return cfg.Provider
}

func wizardPickCount(n int) int {
	if n < picksFlag {
		return n
	}
	return picksFlag
}

// buildInvoker talks to a deployed relay when GATEWAY_URL is set, otherwise
// calls the vendors directly with local keys.
func buildInvoker(cfg config.Config) gateway.Invoker {
	if cfg.GatewayURL != "" {
		log.Debug().Str("url", cfg.GatewayURL).Msg("Using deployed relay")
		return gateway.NewClient(cfg.GatewayURL)
	}

	var providers []gateway.Provider
	if cfg.GeminiAPIKey != "" {
		gem, err := gateway.NewGeminiProvider(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini provider")
		}
		providers = append(providers, gem)
	}
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, gateway.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel))
	}
	if len(providers) == 0 {
		log.Fatal().Msg("Set GATEWAY_URL or a provider API key (GEMINI_API_KEY / OPENAI_API_KEY)")
	}

	svc, err := gateway.NewService(providerOr(cfg), gateway.NewImageFetcher(nil), providers...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build local gateway")
	}
	return svc
}

func buildExporter(cfg config.Config) *export.Exporter {
	if cfg.ExportBucket == "" {
		return nil
	}
	clients := boot.InitAWS()
	return boot.InitExporter(clients.Config, cfg.ExportBucket)
}

// loadAnswers merges the answers file (when given) with flag overrides.
func loadAnswers() questionnaire.Answers {
	var answers questionnaire.Answers
	if answersFlag != "" {
		data, err := os.ReadFile(answersFlag)
		if err != nil {
			log.Fatal().Err(err).Str("path", answersFlag).Msg("Failed to read answers file")
		}
		if err := json.Unmarshal(data, &answers); err != nil {
			log.Fatal().Err(err).Str("path", answersFlag).Msg("Answers file is not valid JSON")
		}
	}
	if nameFlag != "" {
		answers.Name = nameFlag
	}
	if ageFlag != 0 {
		answers.Age = ageFlag
	}
	if genderFlag != "" {
		answers.Gender = genderFlag
	}
	if interestedInFlag != "" {
		answers.InterestedIn = interestedInFlag
	}
	if workFlag != "" {
		answers.Work = workFlag
	}
	if hobbiesFlag != "" {
		answers.Hobbies = hobbiesFlag
	}
	if lookingForFlag != "" {
		answers.LookingFor = lookingForFlag
	}
	if funFactFlag != "" {
		answers.FunFact = funFactFlag
	}
	return answers
}

// loadPhotoDir reads every regular file in dir, sorted by name. Format
// checking happens later by content sniffing, not extension.
func loadPhotoDir(dir string) []submit.File {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatal().Err(err).Str("path", dir).Msg("Failed to read photo directory")
	}

	var files []submit.File
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("Failed to read photo")
		}
		files = append(files, submit.File{Name: entry.Name(), Data: data})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files
}

// writeBundle assembles the ZIP: the bio plus each picked photo, preferring
// the enhanced CDN variant and falling back to the local re-encoded bytes.
func writeBundle(sess *wizard.Session) string {
	items := make([]archive.Item, 0, len(sess.Picks))
	for _, pick := range sess.Picks {
		data := pick.Photo.Data
		if pick.Photo.EnhancedURL != "" {
			if enhanced, err := fetchURL(pick.Photo.EnhancedURL); err == nil {
				data = enhanced
			} else {
				log.Warn().Err(err).Str("file", pick.Photo.Filename).Msg("Enhanced download failed, using local copy")
			}
		}
		items = append(items, archive.Item{Name: pick.Photo.Filename, Data: data})
	}

	out, err := os.Create(outFlag)
	if err != nil {
		log.Fatal().Err(err).Str("path", outFlag).Msg("Failed to create bundle file")
	}
	defer out.Close()

	if err := archive.Write(out, sess.Bio, items); err != nil {
		log.Fatal().Err(err).Msg("Failed to write bundle")
	}
	return outFlag
}

func fetchURL(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 50<<20))
}

func mustReadFile(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read bundle")
	}
	return data
}
