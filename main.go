package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"kringbot-go/cogs"
	"kringbot-go/games/blackjack"
	"kringbot-go/games/dice"
	"kringbot-go/utils"

	"github.com/bwmarrin/discordgo"
)

var session *discordgo.Session
var botStatus = "starting"

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Start HTTP server for hosting health checks
	go startHealthServer(cfg.Port)

	if err := utils.SetupSnapshotStore(cfg.DatabaseURL); err != nil {
		log.Printf("Snapshot store setup failed: %v", err)
		log.Println("Bot will continue without the remote prefs mirror")
	} else if utils.Snapshots != nil {
		log.Println("Snapshot store connected successfully")
		defer utils.CloseSnapshotStore()
	}

	if cfg.DriveAPIKey != "" && cfg.DailyImageFolderID != "" {
		if err := utils.SetupImageProvider(cfg.DriveAPIKey, cfg.RedisURL); err != nil {
			log.Printf("Image provider setup failed: %v", err)
			log.Println("Bot will continue without image commands")
		} else {
			log.Println("Image provider ready")
			defer utils.CloseImageProvider()
		}
	} else {
		log.Println("Image feature not configured - image commands disabled")
	}

	loadPrefs(cfg.PrefsPath)

	session, err = discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		log.Printf("Failed to create Discord session: %v", err)
		botStatus = "error"
		select {}
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages

	session.AddHandler(onReady)
	session.AddHandler(onInteractionCreate)
	session.AddHandler(onButtonInteraction)
	session.AddHandler(onDisconnect)

	if err := session.Open(); err != nil {
		log.Printf("Failed to open Discord connection: %v", err)
		botStatus = "connection_failed"
		select {}
	}
	defer session.Close()

	log.Println("Bot is now running. Press CTRL+C to exit.")
	botStatus = "running"

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop

	log.Println("Gracefully shutting down...")
	botStatus = "shutting_down"
	savePrefs(cfg.PrefsPath)
}

// loadPrefs fills the store from the local snapshot, falling back to the
// remote mirror, falling back to a fresh store.
func loadPrefs(path string) {
	if err := utils.Prefs.Load(path); err == nil {
		log.Printf("Loaded prefs from %s", path)
		return
	}

	if utils.Snapshots != nil {
		found, err := utils.Snapshots.Download(path)
		if err != nil {
			log.Printf("Remote prefs download failed: %v", err)
		} else if found {
			if err := utils.Prefs.Load(path); err != nil {
				log.Printf("Downloaded prefs unreadable: %v", err)
			} else {
				log.Printf("Restored prefs from the remote mirror")
				return
			}
		}
	}

	log.Println("Starting with a fresh prefs store")
}

// savePrefs writes the store locally and mirrors it remotely. An empty store
// is not worth a round-trip; remote failure is logged, never fatal.
func savePrefs(path string) {
	if len(utils.Prefs.AllKeys()) == 0 {
		return
	}
	if err := utils.Prefs.Save(path); err != nil {
		log.Printf("Failed to save prefs: %v", err)
		return
	}
	if utils.Snapshots != nil {
		if err := utils.Snapshots.Upload(path); err != nil {
			log.Printf("Remote prefs upload failed: %v", err)
		}
	}
}

func onReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("Discord bot logged in as %s (ID: %s)", event.User.Username, event.User.ID)
	botStatus = "online"

	if err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{
				Name: "with ktokens",
				Type: discordgo.ActivityTypeGame,
			},
		},
		Status: "online",
	}); err != nil {
		log.Printf("Failed to update status: %v", err)
	}

	if err := registerSlashCommands(s); err != nil {
		log.Printf("Failed to register slash commands: %v", err)
	}
}

func registerSlashCommands(s *discordgo.Session) error {
	commands := []*discordgo.ApplicationCommand{
		cogs.RegisterTokenCommands(),
		cogs.RegisterTokenOwnerCommands(),
	}
	if utils.Images != nil {
		commands = append(commands, cogs.RegisterImageCommands()...)
		commands = append(commands, cogs.RegisterImageOwnerCommands())
	}

	for _, command := range commands {
		_, err := s.ApplicationCommandCreate(s.State.User.ID, "", command)
		if err != nil {
			return fmt.Errorf("failed to create command %s: %w", command.Name, err)
		}
	}

	log.Printf("Successfully registered %d slash commands", len(commands))
	return nil
}

func onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "ktoken":
		cogs.HandleTokenCommand(s, i)
	case "ktoken-owner":
		cogs.HandleTokenOwnerCommand(s, i)
	case "daily-kringles":
		cogs.HandleDailyKringles(s, i)
	case "kring-pic":
		cogs.HandleKringPic(s, i)
	case "refresh-images":
		cogs.HandleRefreshImages(s, i)
	case "kringbot-admin":
		cogs.HandleImageOwnerCommand(s, i)
	}
}

func onButtonInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	customID := i.MessageComponentData().CustomID

	switch {
	case strings.HasPrefix(customID, "kdice_"):
		dice.HandleDiceInteraction(s, i)
	case strings.HasPrefix(customID, "kbj_"):
		blackjack.HandleBlackjackInteraction(s, i)
	}
}

// onDisconnect persists the prefs store so an unclean gateway drop loses
// nothing.
func onDisconnect(s *discordgo.Session, event *discordgo.Disconnect) {
	log.Println("Gateway disconnected - saving prefs")
	savePrefs(utils.BotConfig.PrefsPath)
}

func startHealthServer(port string) {
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(fmt.Sprintf("%s Status: %s", utils.BotName, botStatus)))
	})

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		response := fmt.Sprintf(`{"status":"healthy","service":"kringbot","bot_status":"%s"}`, botStatus)
		w.Write([]byte(response))
	})

	log.Printf("Health server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Printf("Health server error: %v", err)
	}
}
