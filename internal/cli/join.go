package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TRISss33/VIDEO-CONFERENCE/internal/config"
	"github.com/TRISss33/VIDEO-CONFERENCE/internal/rtc"
	"github.com/TRISss33/VIDEO-CONFERENCE/internal/sigclient"
)

var (
	flagServer   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagSecure   bool
	flagName     string
)

var joinCmd = &cobra.Command{
	Use:     "join <room>",
	Aliases: []string{"j"},
	Short:   "Join a conference room",
	Long: `Join (or create) the named room and negotiate a media session with
every other participant.

Examples:
  vc join standup --name alice
  vc join standup --server meet.example.com --secure --name bob`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(args[0])
	},
}

func init() {
	joinCmd.Flags().StringVar(&flagServer, "server", "", "signaling server host:port")
	joinCmd.Flags().StringVar(&flagSTUN, "stun", "", "STUN server URL")
	joinCmd.Flags().StringVar(&flagTURN, "turn", "", "TURN server URL")
	joinCmd.Flags().StringVar(&flagTURNUser, "turn-user", "", "TURN username")
	joinCmd.Flags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password")
	joinCmd.Flags().BoolVar(&flagSecure, "secure", false, "use wss:// for signaling")
	joinCmd.Flags().StringVar(&flagName, "name", "", "display name")
	rootCmd.AddCommand(joinCmd)
}

func joinRoom(room string) error {
	cfg, err := config.Load(config.Options{
		Server:     flagServer,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		Secure:     flagSecure,
	})
	if err != nil {
		return err
	}

	client := sigclient.NewClient(cfg.WebSocketURL)
	if err := client.Connect(); err != nil {
		return err
	}
	defer client.Close()

	handler := sigclient.NewHandler(client.Incoming())
	go handler.Start()

	audio, video, err := rtc.DefaultTracks()
	if err != nil {
		return err
	}
	media := rtc.NewStaticMedia(audio, video)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	engine := rtc.NewEngine(client, handler, rtc.PionFactory(cfg))
	go engine.Run(ctx)

	if err := engine.AttachMedia(media); err != nil {
		return err
	}
	if flagName != "" {
		if err := engine.SetUsername(flagName); err != nil {
			return err
		}
	}
	if err := engine.JoinRoom(room); err != nil {
		return err
	}

	go readCommands(engine)

	names := map[string]string{}
	for {
		select {
		case <-ctx.Done():
			engine.LeaveRoom()
			return nil

		case ev := <-engine.Events():
			switch ev.Kind {
			case rtc.EventCreatedRoom:
				fmt.Printf("room %s created, waiting for participants\n", ev.Room)
			case rtc.EventJoinedRoom:
				fmt.Printf("joined room %s\n", ev.Room)
			case rtc.EventPeerStream:
				fmt.Printf("receiving media from %s\n", displayName(names, ev.PeerID))
			case rtc.EventPeerLeft:
				fmt.Printf("%s left\n", displayName(names, ev.PeerID))
			case rtc.EventKicked:
				fmt.Println("you were kicked out of the room")
				return nil
			case rtc.EventLeftRoom:
				fmt.Printf("left room %s\n", ev.Room)
				return nil
			case rtc.EventUsernames:
				names = ev.Usernames
			case rtc.EventNotice:
				fmt.Println(ev.Text)
			}
		}
	}
}

// readCommands runs the interactive prompt: mute/unmute, kick, who, leave.
func readCommands(engine *rtc.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch fields[0] {
		case "mute":
			err = engine.SetAudioEnabled(false)
		case "unmute":
			err = engine.SetAudioEnabled(true)
		case "kick":
			if len(fields) < 2 {
				fmt.Println("usage: kick <peer>")
				continue
			}
			err = engine.Kick(fields[1])
		case "who":
			for _, id := range engine.Participants() {
				fmt.Println(id)
			}
		case "leave":
			err = engine.LeaveRoom()
		default:
			fmt.Println("commands: mute, unmute, kick <peer>, who, leave")
		}
		if err != nil {
			fmt.Println(err)
		}
	}
}

func displayName(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return id
}
