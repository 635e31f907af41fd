package command

import (
	"context"
	"fmt"

	"github.com/pixil98/go-gallery/internal/directory"
	"github.com/pixil98/go-gallery/internal/driver"
	"github.com/pixil98/go-gallery/internal/messaging"
	"github.com/pixil98/go-gallery/internal/room"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	// Embedded message bus carrying room output to connections
	natsServer, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}
	pub := messaging.NewNatsPublisher(natsServer)

	banStore, err := cfg.Bans.buildStore(context.Background())
	if err != nil {
		return nil, fmt.Errorf("creating ban store: %w", err)
	}

	// Room hosting
	manager := room.NewManager(pub,
		room.WithBanList(banStore),
		room.WithRoomOpts(room.WithPatchInterval(cfg.patchInterval())),
	)
	if err := cfg.defineRooms(manager); err != nil {
		return nil, err
	}

	// Server clock
	clock := driver.NewDriver([]driver.Ticker{manager}, driver.WithTickLength(cfg.clockInterval()))

	ws := cfg.Listener.buildListener(manager, pub, directory.NewService(manager), natsServer.WaitReady)

	return service.WorkerList{
		"nats":     natsServer,
		"rooms":    manager,
		"driver":   clock,
		"listener": ws,
	}, nil
}
