package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jwebster45206/date-engine/internal/content"
	"github.com/jwebster45206/date-engine/pkg/episode"
	"github.com/jwebster45206/date-engine/pkg/storage"
)

// Episode operations (filesystem-backed, embedded content as the base)

// ListEpisodes returns episode titles keyed by episode id.
func (r *RedisStorage) ListEpisodes(ctx context.Context) (map[string]string, error) {
	eps, err := r.loadEpisodes()
	if err != nil {
		return nil, err
	}
	result := make(map[string]string, len(eps))
	for id, ep := range eps {
		result[id] = ep.Title
	}
	return result, nil
}

func (r *RedisStorage) GetEpisode(ctx context.Context, episodeID string) (*episode.Episode, error) {
	eps, err := r.loadEpisodes()
	if err != nil {
		return nil, err
	}
	ep, ok := eps[episodeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrEpisodeNotFound, episodeID)
	}
	return ep, nil
}

// loadEpisodes reads episodes once. Files under dataDir/episodes replace
// embedded episodes with the same id. Invalid files are logged and skipped.
func (r *RedisStorage) loadEpisodes() (map[string]*episode.Episode, error) {
	r.episodesOnce.Do(func() {
		eps, err := content.Episodes()
		if err != nil {
			r.episodesErr = fmt.Errorf("failed to load embedded episodes: %w", err)
			return
		}

		dir := filepath.Join(r.dataDir, "episodes")
		walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
				return nil
			}

			data, err := os.ReadFile(path)
			if err != nil {
				r.logger.Warn("Failed to read episode file", "path", path, "error", err)
				return nil
			}

			ep, err := content.ParseEpisode(data)
			if err != nil {
				r.logger.Warn("Skipping invalid episode file", "path", path, "error", err)
				return nil
			}

			r.logger.Debug("Loaded episode from data dir", "episode_id", ep.EpisodeID, "path", path)
			eps[ep.EpisodeID] = ep
			return nil
		})
		if walkErr != nil && !os.IsNotExist(walkErr) {
			r.logger.Warn("Failed to walk episodes directory", "dir", dir, "error", walkErr)
		}

		r.episodes = eps
	})
	return r.episodes, r.episodesErr
}
