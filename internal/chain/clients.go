package chain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

// ClientPool lazily dials and caches one RPC client per configured
// network client id.
type ClientPool struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]*ethclient.Client
}

func NewClientPool(logger *slog.Logger) *ClientPool {
	return &ClientPool{
		logger:  logger,
		clients: make(map[string]*ethclient.Client),
	}
}

// Dial returns the cached client for the endpoint, dialing on first
// use.
func (p *ClientPool) Dial(ctx context.Context, client domain.NetworkClient) (*ethclient.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ec, ok := p.clients[client.ID]; ok {
		return ec, nil
	}
	ec, err := ethclient.DialContext(ctx, client.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", client.ID, err)
	}
	p.logger.Debug("dialed rpc endpoint",
		slog.String("client_id", client.ID),
		slog.Uint64("chain_id", client.ChainID),
	)
	p.clients[client.ID] = ec
	return ec, nil
}

// Close shuts down every dialed client.
func (p *ClientPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, ec := range p.clients {
		ec.Close()
		delete(p.clients, id)
	}
}

// StaticRegistry resolves network client ids against a fixed set loaded
// from configuration.
type StaticRegistry struct {
	clients map[string]domain.NetworkClient
}

var _ domain.NetworkRegistry = (*StaticRegistry)(nil)

func NewStaticRegistry(clients []domain.NetworkClient) *StaticRegistry {
	m := make(map[string]domain.NetworkClient, len(clients))
	for _, c := range clients {
		m[c.ID] = c
	}
	return &StaticRegistry{clients: m}
}

func (r *StaticRegistry) ClientByID(id string) (domain.NetworkClient, error) {
	c, ok := r.clients[id]
	if !ok {
		return domain.NetworkClient{}, fmt.Errorf("chain: %q: %w", id, domain.ErrUnknownNetworkClient)
	}
	return c, nil
}
