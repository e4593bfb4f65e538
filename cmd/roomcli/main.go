// roomcli joins one room as a participant and prints session events.
// It exercises the full client path: redis stores, pion mesh, heartbeat.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lumachat/voiceroom/internal/config"
	"github.com/lumachat/voiceroom/internal/domain"
	"github.com/lumachat/voiceroom/internal/rtc"
	"github.com/lumachat/voiceroom/internal/session"
	redisstore "github.com/lumachat/voiceroom/internal/store/redis"
)

func main() {
	var (
		roomID = flag.String("room", "", "room id to join")
		uid    = flag.String("uid", uuid.NewString(), "user id")
		name   = flag.String("name", "roomcli", "display name")
		noMic  = flag.Bool("no-mic", false, "join receive-only")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if *roomID == "" {
		log.Fatal().Msg("-room is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rdb := redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable")
	}

	var mic *rtc.SampleMicrophone
	if !*noMic {
		mic, err = rtc.NewSampleMicrophone(*uid)
		if err != nil {
			log.Fatal().Err(err).Msg("microphone track")
		}
	}
	webrtcCfg := rtc.ConfigFromURLs(cfg.ICEServers)

	opts := session.Options{
		Self:      session.Profile{UID: domain.UserID(*uid), DisplayName: *name},
		RoomID:    domain.RoomID(*roomID),
		Rooms:     redisstore.NewRoomStore(rdb),
		Signals:   redisstore.NewSignalChannel(rdb),
		Invites:   redisstore.NewInviteMailbox(rdb),
		Heartbeat: cfg.HeartbeatPeriod,
	}
	if mic != nil {
		opts.Mic = mic
		opts.Factory = rtc.PionFactory(webrtcCfg, mic)
	} else {
		opts.Factory = rtc.PionFactory(webrtcCfg, nil)
	}

	s := session.New(opts)
	if err := s.Start(ctx); err != nil {
		log.Fatal().Err(err).Str("room", *roomID).Msg("join failed")
	}
	log.Info().Str("room", *roomID).Str("uid", *uid).Msg("joined")

	go func() {
		for ev := range s.Events() {
			switch ev.Kind {
			case session.EventEntered:
				log.Info().Str("user", string(ev.User)).Str("name", ev.Name).Msg("entered")
			case session.EventKicked:
				log.Warn().Msg("kicked from room")
				cancel()
			case session.EventRoomClosed:
				log.Info().Msg("room closed")
				cancel()
			case session.EventInvite:
				if ev.Invite != nil {
					log.Info().Str("from", ev.Invite.FromName).Str("seat", ev.Invite.Seat.String()).Msg("seat invite")
				}
			case session.EventSpeaking:
				log.Debug().Int("speaking", len(ev.Speaking)).Msg("levels")
			}
		}
	}()

	<-ctx.Done()
	s.Stop()
	log.Info().Msg("left room")
}
