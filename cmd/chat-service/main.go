package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/neegandary/NexChat/chatservice"
)

func main() {
	if err := chatservice.Run(); err != nil {
		log.Error().Err(err).Msg("chat-service exited with error")
		os.Exit(1)
	}
}
