package champion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const DefaultDataURL = "https://ddragon.leagueoflegends.com/cdn/15.18.1/data/en_US/champion.json"

var ErrFetch = errors.New("champion data fetch failed")

// ddragonFile is the subset of Data Dragon's champion.json we read. Keys come
// over as strings ("266").
type ddragonFile struct {
	Version string `json:"version"`
	Data    map[string]struct {
		ID   string `json:"id"`
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"data"`
}

// Loader fetches the champion catalog once and hands the same immutable value
// to every caller afterwards.
type Loader struct {
	url    string
	client *http.Client
	log    *zap.Logger

	group singleflight.Group
	mu    sync.Mutex
	cat   *Catalog
}

func NewLoader(url string, client *http.Client, log *zap.Logger) *Loader {
	if url == "" {
		url = DefaultDataURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{url: url, client: client, log: log}
}

func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	l.mu.Lock()
	cat := l.cat
	l.mu.Unlock()
	if cat != nil {
		return cat, nil
	}

	v, err, shared := l.group.Do("catalog", func() (any, error) {
		l.mu.Lock()
		cached := l.cat
		l.mu.Unlock()
		if cached != nil {
			return cached, nil
		}

		cat, err := l.fetch(ctx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cat = cat
		l.mu.Unlock()
		return cat, nil
	})
	if err != nil {
		return nil, err
	}
	l.log.Debug("champion catalog ready", zap.Bool("shared", shared))
	return v.(*Catalog), nil
}

func (l *Loader) fetch(ctx context.Context) (*Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrFetch, resp.Status)
	}

	var file ddragonFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrFetch, err)
	}

	champs := make([]Champion, 0, len(file.Data))
	for _, d := range file.Data {
		k, err := ParseKey(d.Key)
		if err != nil || !k.Valid() {
			l.log.Warn("skipping champion with bad key", zap.String("id", d.ID), zap.String("key", d.Key))
			continue
		}
		champs = append(champs, Champion{ID: ID(d.ID), Key: k, Name: d.Name})
	}

	cat, err := NewCatalog(champs)
	if err != nil {
		return nil, err
	}
	l.log.Info("loaded champion catalog",
		zap.String("version", file.Version),
		zap.Int("champions", cat.Len()),
	)
	return cat, nil
}
