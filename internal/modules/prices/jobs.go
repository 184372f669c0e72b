package prices

import "github.com/rs/zerolog"

// SeriesSyncJob refreshes stored price series and the live quote snapshot
// for all open positions. Registered with the scheduler on a daily spec.
type SeriesSyncJob struct {
	service *Service
	log     zerolog.Logger
}

// NewSeriesSyncJob creates the daily series sync job
func NewSeriesSyncJob(service *Service, log zerolog.Logger) *SeriesSyncJob {
	return &SeriesSyncJob{
		service: service,
		log:     log.With().Str("job", "series_sync").Logger(),
	}
}

// Name returns the job name
func (j *SeriesSyncJob) Name() string {
	return "price_series_sync"
}

// Run downloads fresh history and rebuilds the quote snapshot
func (j *SeriesSyncJob) Run() error {
	synced := j.service.SyncAllHistory()
	quoted := j.service.RefreshAll()

	j.log.Info().Int("series_synced", synced).Int("quotes", quoted).Msg("Series sync complete")
	return nil
}
