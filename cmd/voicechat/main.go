// Command voicechat is the terminal client: a line-based chat loop against
// the VoxChat backend with local transcript persistence and an optional
// realtime voice channel fed from a WAV capture file.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/voxchat/voxchat-backend/internal/client"
	"github.com/voxchat/voxchat-backend/internal/config"
	"github.com/voxchat/voxchat-backend/internal/conversation"
	"github.com/voxchat/voxchat-backend/internal/store"
	"github.com/voxchat/voxchat-backend/internal/summary"
	"github.com/voxchat/voxchat-backend/internal/voice"
)

func main() {
	serverURL := flag.String("server", "", "backend base URL (default from config)")
	useVoice := flag.Bool("voice", false, "enable the realtime voice channel")
	wavPath := flag.String("wav", "", "WAV file used as the capture source for recording")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	baseURL := *serverURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	notifier := &consoleNotifier{}

	analyzeClient := client.NewAnalyzeClient(baseURL, cfg.Chat.AnalyzeTimeout, log)
	chatClient := client.NewChatClient(baseURL, cfg.Chat.Timeout)
	summarizeClient := client.NewSummarizeClient(baseURL, cfg.Summary.Timeout)

	titler := summary.NewGenerator(summarizeClient, cfg.Summary.MaxTitleLength, cfg.Summary.MaxMessages, log)
	st, err := store.Open(cfg.Store.Path, titler, cfg.Store.MaxConversations, cfg.Summary.RefreshEvery, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to open conversation store:", err)
		os.Exit(1)
	}
	defer st.Close()

	session := conversation.NewSession(analyzeClient, chatClient, st, notifier, cfg.Chat.Temperature, log)
	defer session.Flush(context.Background())

	repl := &repl{
		cfg:      cfg,
		session:  session,
		store:    st,
		notifier: notifier,
		log:      log,
	}

	if *useVoice {
		repl.voice = voice.NewSession(voice.Options{
			Endpoint:       cfg.Voice.Endpoint,
			SampleRate:     cfg.Voice.SampleRate,
			SubmitDebounce: cfg.Voice.SubmitDebounce,
			Capture:        &voice.WAVCapture{Path: *wavPath},
			Player:         &filePlayer{},
			Notifier:       notifier,
			OnState: func(state voice.State) {
				fmt.Printf("[voice] %s\n", state)
			},
			OnPartial: func(text string) {
				fmt.Printf("[listening] %s\n", text)
			},
			Submit: repl.submit,
			Logger: log,
		})
		defer repl.voice.Disconnect()

		if *wavPath == "" {
			fmt.Println("Note: no -wav capture source given; /record will fail.")
		}
	}

	repl.run()
}

type repl struct {
	cfg      *config.Config
	session  *conversation.Session
	store    *store.Store
	voice    *voice.Session
	notifier *consoleNotifier
	log      *logrus.Logger
	scanner  *bufio.Scanner
}

func (r *repl) run() {
	fmt.Println("VoxChat. Type a message, or /help for commands.")

	r.scanner = bufio.NewScanner(os.Stdin)
	r.scanner.Buffer(make([]byte, 64*1024), 64*1024)

	for {
		fmt.Print("> ")
		if !r.scanner.Scan() {
			return
		}
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if !r.command(line) {
				return
			}
			continue
		}
		r.submit(line)
	}
}

// submit runs one conversation turn and prints the reply. Also the sink for
// recognized voice transcripts.
func (r *repl) submit(text string) {
	err := r.session.Submit(context.Background(), text)
	if err != nil {
		// Notices already printed by the notifier; guards are silent.
		return
	}

	snapshot := r.session.Snapshot()
	if len(snapshot.Messages) == 0 {
		return
	}
	last := snapshot.Messages[len(snapshot.Messages)-1]
	if last.Role == conversation.RoleAssistant {
		fmt.Println(last.Content)
	}
}

// command dispatches a slash command. Returns false to exit the loop.
func (r *repl) command(line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	ctx := context.Background()

	switch cmd {
	case "/help":
		r.printHelp()

	case "/quit", "/exit":
		return false

	case "/new":
		r.session.StartNew(ctx)
		fmt.Println("Started a new conversation:", r.session.ID())

	case "/list":
		records, err := r.store.List(ctx)
		if err != nil {
			fmt.Println("Failed to list conversations:", err)
			return true
		}
		r.printRecords(records)

	case "/search":
		if len(args) == 0 {
			fmt.Println("Usage: /search <query>")
			return true
		}
		records, err := r.store.Search(ctx, strings.Join(args, " "))
		if err != nil {
			fmt.Println("Search failed:", err)
			return true
		}
		r.printRecords(records)

	case "/load":
		if len(args) != 1 {
			fmt.Println("Usage: /load <id>")
			return true
		}
		if err := r.session.LoadExisting(ctx, args[0]); err != nil {
			fmt.Println("Failed to load conversation:", err)
		}

	case "/delete":
		if len(args) != 1 {
			fmt.Println("Usage: /delete <id>")
			return true
		}
		if !r.confirm("Delete conversation " + args[0] + "?") {
			return true
		}
		if err := r.store.Delete(ctx, args[0]); err != nil {
			fmt.Println("Failed to delete conversation:", err)
			return true
		}
		r.session.HandleDeleted(ctx, args[0])
		fmt.Println("Deleted.")

	case "/deleteall":
		if !r.confirm("Delete ALL saved conversations?") {
			return true
		}
		if err := r.store.DeleteAll(ctx); err != nil {
			fmt.Println("Failed to delete conversations:", err)
			return true
		}
		r.session.HandleDeleted(ctx, r.session.ID())
		fmt.Println("All conversations deleted.")

	case "/export":
		if len(args) != 1 {
			fmt.Println("Usage: /export <file>")
			return true
		}
		data, err := r.session.Export().MarshalIndent()
		if err != nil {
			fmt.Println("Export failed:", err)
			return true
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			fmt.Println("Export failed:", err)
			return true
		}
		fmt.Println("Exported to", args[0])

	case "/feedback":
		if len(args) != 1 || (args[0] != "up" && args[0] != "down") {
			fmt.Println("Usage: /feedback up|down")
			return true
		}
		label := conversation.FeedbackUp
		if args[0] == "down" {
			label = conversation.FeedbackDown
		}
		r.session.Feedback(label)

	case "/clear":
		if !r.confirm("Clear the current message history?") {
			return true
		}
		r.session.ClearMessages()
		fmt.Println("Messages cleared.")

	case "/reset":
		if !r.confirm("Reset analytics for this conversation?") {
			return true
		}
		r.session.ResetAnalytics()
		fmt.Println("Analytics reset.")

	case "/analytics":
		r.printAnalytics()

	case "/connect":
		if r.voice == nil {
			fmt.Println("Voice is not enabled. Restart with -voice.")
			return true
		}
		_ = r.voice.Connect(ctx)

	case "/disconnect":
		if r.voice == nil {
			fmt.Println("Voice is not enabled. Restart with -voice.")
			return true
		}
		r.voice.Disconnect()

	case "/record":
		r.record(ctx, args)

	case "/say":
		if r.voice == nil {
			fmt.Println("Voice is not enabled. Restart with -voice.")
			return true
		}
		if len(args) == 0 {
			fmt.Println("Usage: /say <text>")
			return true
		}
		_ = r.voice.RequestSpeech(strings.Join(args, " "))

	default:
		fmt.Println("Unknown command. Type /help for the list.")
	}
	return true
}

func (r *repl) record(ctx context.Context, args []string) {
	if r.voice == nil {
		fmt.Println("Voice is not enabled. Restart with -voice.")
		return
	}
	if len(args) != 1 || (args[0] != "start" && args[0] != "stop") {
		fmt.Println("Usage: /record start|stop")
		return
	}

	var err error
	if args[0] == "start" {
		err = r.voice.StartRecording(ctx)
	} else {
		err = r.voice.StopRecording()
	}
	if err != nil {
		fmt.Println("Recording:", err)
	}
}

func (r *repl) confirm(prompt string) bool {
	fmt.Print(prompt + " [y/N] ")
	if !r.scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(r.scanner.Text()))
	return answer == "y" || answer == "yes"
}

func (r *repl) printRecords(records []*conversation.Record) {
	if len(records) == 0 {
		fmt.Println("No saved conversations.")
		return
	}
	for _, record := range records {
		fmt.Printf("%s  %-40s  %d messages  %s\n",
			record.ID, record.Title, record.MessageCount,
			record.SavedAt.Format("2006-01-02 15:04"))
	}
}

func (r *repl) printAnalytics() {
	snapshot := r.session.Snapshot()
	a := snapshot.Analytics

	fmt.Printf("Messages: %d total, %d user, %d assistant\n",
		a.TotalMessages, a.UserMessages, a.BotMessages)
	for sentiment, count := range a.Sentiments {
		fmt.Printf("  %s: %d\n", sentiment, count)
	}
	for intent, count := range a.Intents {
		fmt.Printf("  %s: %d\n", intent, count)
	}
	if rate, ok := a.Satisfaction(); ok {
		fmt.Printf("Satisfaction: %.0f%%\n", rate)
	}
}

func (r *repl) printHelp() {
	fmt.Println(`Commands:
  /new                 start a new conversation
  /list                list saved conversations
  /search <query>      search saved conversations by title
  /load <id>           load a saved conversation
  /delete <id>         delete a saved conversation
  /deleteall           delete all saved conversations
  /export <file>       export the current conversation to a JSON file
  /feedback up|down    rate the last response
  /clear               clear the current message history
  /reset               reset conversation analytics
  /analytics           show conversation analytics
  /connect             open the voice channel (-voice)
  /disconnect          close the voice channel
  /record start|stop   stream the -wav capture source
  /say <text>          synthesize text over the voice channel
  /quit                exit`)
}

// consoleNotifier prints transient notices inline.
type consoleNotifier struct{}

func (consoleNotifier) Notify(level, message string) {
	fmt.Printf("[%s] %s\n", level, message)
}

// filePlayer "plays" synthesized audio by saving it next to the session and
// printing the path, since the terminal has no audio output.
type filePlayer struct{}

func (filePlayer) Play(audio []byte) error {
	f, err := os.CreateTemp("", "voxchat-tts-*.wav")
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(audio); err != nil {
		return err
	}
	fmt.Println("[audio] saved to", f.Name())
	return nil
}
