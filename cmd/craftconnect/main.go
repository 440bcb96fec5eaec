// cmd/craftconnect/main.go
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	audiocapture "craftconnect/internal/client/audio-capture"
	flowstate "craftconnect/internal/client/flow-state"
	uploadclient "craftconnect/internal/client/upload-client"
	"craftconnect/internal/common/config"
	"craftconnect/internal/common/database"
	"craftconnect/internal/common/logger"
	"craftconnect/internal/models"
	"craftconnect/pkg/registry"
)

type app struct {
	cfg     *config.Config
	log     logger.Logger
	flow    *flowstate.Flow
	client  *uploadclient.Client
	catalog *registry.Catalog
	closers []func() error
}

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		help()
		return
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	switch cmd {
	case "record":
		err = a.record(ctx, args)
	case "import":
		err = a.importFile(ctx, args)
	case "submit":
		err = a.submit(ctx)
	case "select":
		err = a.selectSolution(ctx, args)
	case "message":
		err = a.message(ctx, args)
	case "status":
		err = a.status(ctx)
	case "reset":
		err = a.reset(ctx)
	case "health":
		err = a.health(ctx)
	case "usage":
		err = a.usage(ctx)
	default:
		help()
		a.close()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+describe(err))
		a.close()
		os.Exit(1)
	}
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	log := logger.NewStructured(cfg.Logging.Level, "console", "stderr")
	a := &app{
		cfg:     cfg,
		log:     log,
		client:  uploadclient.NewClient(uploadclient.ConfigFrom(cfg), log),
		catalog: registry.Default(),
	}

	var store flowstate.Store
	switch cfg.Client.StateStore {
	case "redis":
		rc, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis session store: %w", err)
		}
		a.closers = append(a.closers, rc.Close)
		store = flowstate.NewRedisStore(rc.GetClient(), "craftconnect:session:", cfg.Client.SessionID,
			config.GetDuration(cfg.Client.SessionTTL))
	case "sqlite":
		path := strings.TrimSuffix(cfg.Client.StatePath, filepath.Ext(cfg.Client.StatePath)) + ".db"
		sqliteStore, err := flowstate.OpenSQLiteStore(path, cfg.Client.SessionID)
		if err != nil {
			return nil, fmt.Errorf("sqlite session store: %w", err)
		}
		a.closers = append(a.closers, sqliteStore.Close)
		store = sqliteStore
	default:
		store = flowstate.NewFileStore(cfg.Client.StatePath)
	}
	a.flow = flowstate.NewFlow(store, log)
	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c()
	}
}

// --- record / import ---

func (a *app) record(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	duration := fs.Duration("duration", 0, "Stop automatically after this long (default: press Enter to stop)")
	_ = fs.Parse(args)

	captureCfg := audiocapture.ConfigFrom(a.cfg)
	encoders, err := audiocapture.ListEncoders(ctx, captureCfg.Command)
	if err != nil {
		return err
	}
	format, err := audiocapture.NegotiateFormat(encoders)
	if err != nil {
		return err
	}

	recorder := audiocapture.NewRecorder(captureCfg, audiocapture.NewFFmpegSource(captureCfg), format, a.log)
	defer recorder.Close()

	if err := recorder.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("🎙️  Recording (%s). Describe your craft business; speak for at least %.0f seconds.\n",
		format.MimeType, captureCfg.MinDuration.Seconds())

	rec, err := a.waitAndStop(ctx, recorder, *duration)
	if err != nil {
		return err
	}

	if _, err := a.flow.Apply(ctx, flowstate.RecordingCaptured{Recording: rec}); err != nil {
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("✅ Saved %.1fs recording (%d bytes).", rec.DurationSeconds, rec.Size())) + " Next: craftconnect submit")
	return nil
}

func (a *app) waitAndStop(ctx context.Context, recorder *audiocapture.Recorder, duration time.Duration) (*models.AudioRecording, error) {
	if duration > 0 {
		select {
		case <-time.After(duration):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return recorder.Stop(ctx)
	}

	lines := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- struct{}{}
		}
		close(lines)
	}()

	fmt.Println("Press Enter to stop.")
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case _, ok := <-lines:
			rec, err := recorder.Stop(ctx)
			if errors.Is(err, audiocapture.ErrRecordingTooShort) && ok {
				fmt.Printf("⏱️  Only %.0fs so far. Keep talking, then press Enter again.\n", recorder.Elapsed().Seconds())
				continue
			}
			return rec, err
		}
	}
}

func (a *app) importFile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	path := fs.String("file", "", "Path to an existing recording")
	mimeType := fs.String("mime", "", "MIME type (inferred from the extension when empty)")
	duration := fs.Duration("duration", 0, "Recording length; read from the header for WAV files")
	_ = fs.Parse(args)

	if *path == "" {
		fs.Usage()
		return errors.New("-file is required")
	}

	rec, err := audiocapture.FromFile(*path, *mimeType, *duration)
	if err != nil {
		return err
	}
	if _, err := a.flow.Apply(ctx, flowstate.RecordingCaptured{Recording: rec}); err != nil {
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("✅ Imported %.1fs recording (%s).", rec.DurationSeconds, rec.MimeType)) + " Next: craftconnect submit")
	return nil
}

// --- submit / select / message ---

func (a *app) submit(ctx context.Context) error {
	state, err := a.flow.Current(ctx)
	if err != nil {
		return err
	}
	if !state.HasRecorded() {
		return errors.New("nothing recorded yet. Run: craftconnect record")
	}

	fmt.Println("⏳ Analyzing your business...")
	resp, err := a.client.SubmitRecording(ctx, state.Recording)
	if err != nil {
		return err
	}

	state, err = a.flow.Apply(ctx, flowstate.AnalysisReceived{Transcript: resp.Transcript, Analysis: resp.Analysis})
	if err != nil {
		return err
	}
	a.printInsights(state)
	return nil
}

func (a *app) printInsights(state flowstate.State) {
	an := state.Analysis
	fmt.Println("\n" + titleStyle.Render("📝 Transcript"))
	fmt.Println(transcriptStyle.Render(state.Transcript) + "\n")
	fmt.Printf("🏷️  %s %s (%s)\n", labelStyle.Render("Business:"), titleStyle.Render(an.BusinessType), an.DetectedFocus)
	fmt.Printf("📊 %s %d%%\n", labelStyle.Render("Confidence:"), an.Confidence)
	if len(an.TopProblems) > 0 {
		fmt.Println("⚠️  Top problems:")
		for _, p := range an.TopProblems {
			fmt.Printf("   • %s\n", p)
		}
	}

	fmt.Println("\n" + titleStyle.Render("💡 Recommended solutions"))
	recs := []models.Recommendation{an.RecommendedSolutions.Primary, an.RecommendedSolutions.Secondary}
	for i, rec := range recs {
		sol, _ := a.catalog.Lookup(rec.ID)
		tag := ""
		if !sol.Available {
			tag = dimStyle.Render(" (coming soon)")
		}
		fmt.Printf("   %d. %s %s%s: %s\n", i+1, sol.Icon, sol.Title, tag, rec.Reason)
	}
	fmt.Println("\n" + dimStyle.Render("Next: craftconnect select -solution <"+strings.Join(a.catalog.IDs(), "|")+">"))
}

func (a *app) selectSolution(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("select", flag.ExitOnError)
	id := fs.String("solution", "", "Solution id: "+strings.Join(a.catalog.IDs(), ", "))
	_ = fs.Parse(args)

	state, err := a.flow.Apply(ctx, flowstate.SolutionSelected{SolutionID: *id})
	if err != nil {
		return err
	}
	sol, _ := a.catalog.Lookup(state.SelectedSolution)
	fmt.Printf("%s Selected %s.\n", sol.Icon, sol.Title)
	if !sol.Available {
		fmt.Println("🚧 This solution is coming soon.")
		return nil
	}
	if sol.ID == "whatsapp" {
		fmt.Println("Next: craftconnect message")
	}
	return nil
}

func (a *app) message(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("message", flag.ExitOnError)
	businessType := fs.String("business", "", "Override the detected business type")
	focus := fs.String("focus", "", "Override the detected product focus")
	_ = fs.Parse(args)

	state, err := a.flow.Current(ctx)
	if err != nil {
		return err
	}
	if step := flowstate.Resolve(state, flowstate.SolutionStep("whatsapp")); step != flowstate.SolutionStep("whatsapp") {
		return fmt.Errorf("not available yet; continue at step %q", step)
	}

	req := models.MessageRequest{
		BusinessType:  state.Analysis.BusinessType,
		DetectedFocus: state.Analysis.DetectedFocus,
		Transcript:    state.Transcript,
	}
	if *businessType != "" {
		req.BusinessType = *businessType
	}
	if *focus != "" {
		req.DetectedFocus = *focus
	}

	fmt.Println("⏳ Writing your WhatsApp message...")
	msg, err := a.client.ComposeMessage(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println("\n" + titleStyle.Render("📱 WhatsApp message"))
	fmt.Println(messageStyle.Render(msg))
	return nil
}

// --- status / reset / diagnostics ---

func (a *app) status(ctx context.Context) error {
	state, err := a.flow.Current(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", labelStyle.Render("Stage:"), titleStyle.Render(state.Stage().String()))
	if state.HasRecorded() {
		fmt.Printf("Recording: %.1fs, %s, %d bytes\n", state.Recording.DurationSeconds, state.Recording.MimeType, state.Recording.Size())
	}
	if state.Analysis != nil {
		fmt.Printf("Business: %s\n", state.Analysis.BusinessType)
	}
	if state.SelectedSolution != "" {
		fmt.Printf("Selected: %s\n", state.SelectedSolution)
	}
	fmt.Printf("%s %s\n", labelStyle.Render("Current step:"), flowstate.FurthestStep(state))
	return nil
}

func (a *app) reset(ctx context.Context) error {
	if _, err := a.flow.Apply(ctx, flowstate.Reset{}); err != nil {
		return err
	}
	fmt.Println("🧹 Session cleared.")
	return nil
}

func (a *app) health(ctx context.Context) error {
	h, err := a.client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Status: %s (%s, up %.0fs)\n", h.Status, h.Environment, h.Uptime)
	fmt.Printf("Speech: %s  Vertex AI: %s  Vision: %s\n", mark(h.Services.Speech), mark(h.Services.VertexAI), mark(h.Services.Vision))
	return nil
}

func (a *app) usage(ctx context.Context) error {
	u, err := a.client.UsageStats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Requests today: %d\n", u.RequestsToday)
	fmt.Printf("Estimated spend: $%.3f of $%.2f ($%.3f per request)\n", u.TotalCost, u.BudgetLimit, u.EstimatedCostPerRequest)
	return nil
}

func mark(ok bool) string {
	if ok {
		return successStyle.Render("configured")
	}
	return errorStyle.Render("missing")
}

func describe(err error) string {
	var serverErr *uploadclient.ServerError
	switch {
	case errors.Is(err, audiocapture.ErrRecordingTooShort):
		return "recording is too short; speak for at least 10 seconds"
	case errors.Is(err, audiocapture.ErrMicrophoneUnavailable):
		return "microphone unavailable: " + err.Error()
	case errors.Is(err, uploadclient.ErrRequestTimeout):
		return "the server took too long to answer; please try again"
	case errors.As(err, &serverErr):
		if serverErr.Details != "" {
			return serverErr.Message + ": " + serverErr.Details
		}
		return serverErr.Message
	default:
		return err.Error()
	}
}

func help() {
	fmt.Println(`
Usage: craftconnect <command> [flags]

Commands:
  record   Record a voice description of your business
  import   Use an existing audio file instead of recording
  submit   Send the recording for transcription and analysis
  select   Choose a recommended (or any) solution
  message  Generate a WhatsApp marketing message
  status   Show where you are in the flow
  reset    Clear the saved session
  health   Check the API
  usage    Show today's API usage
  help     Show this help message

Examples:
  craftconnect record
  craftconnect import -file memo.wav
  craftconnect select -solution whatsapp

Use 'craftconnect <command> -h' for more information about a command.`)
}
