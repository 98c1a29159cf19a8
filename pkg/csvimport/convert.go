package csvimport

import (
	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

// ToBatch converts grouped rows into the typed records of a dataset.
func ToBatch(layout Layout, product string, rows []Row) metrics.Batch {
	batch := metrics.Batch{Dataset: layout.Dataset, Product: product}
	for _, r := range rows {
		quarter := r.String("quarter")
		switch layout.Dataset {
		case metrics.DatasetResponsiveness:
			batch.Responsiveness = append(batch.Responsiveness, metrics.ResponsivenessTrend{
				Product:          product,
				Quarter:          quarter,
				TotalIdeas:       r.Int("total_ideas"),
				MovedOutOfReview: r.Int("ideas_moved_out_of_review"),
				NoAction:         r.Int("ideas_no_action"),
				Percentage:       r.Float("percentage"),
			})
		case metrics.DatasetCommitment:
			batch.Commitments = append(batch.Commitments, metrics.CommitmentTrend{
				Product:   product,
				Year:      r.Int("year"),
				Quarter:   quarter,
				Committed: r.Int("committed"),
				Delivered: r.Int("delivered"),
			})
		case metrics.DatasetEngagement:
			batch.Engagement = append(batch.Engagement, metrics.ContinuedEngagement{
				Product:              product,
				Quarter:              quarter,
				TotalIdeas:           r.Int("total_ideas"),
				WithSubsequentAction: r.Int("ideas_with_subsequent_action"),
				Rate:                 r.Float("engagement_rate"),
				IdeaIDs:              metrics.StringList(r.List("idea_ids")),
			})
		case metrics.DatasetClientSubmissions:
			batch.Clients = append(batch.Clients, metrics.ClientSubmission{
				Product:     product,
				Quarter:     quarter,
				ClientName:  r.String("client_name"),
				Submissions: r.Int("submissions"),
			})
		case metrics.DatasetCollaboration:
			batch.Collaboration = append(batch.Collaboration, metrics.CrossClientCollaboration{
				Product:            product,
				Quarter:            quarter,
				CollaborativeIdeas: r.Int("collaborative_ideas"),
				TotalIdeas:         r.Int("total_ideas"),
				IdeaIDs:            metrics.StringList(r.List("idea_ids")),
			})
		case metrics.DatasetTopFeatures:
			batch.Features = append(batch.Features, metrics.Feature{
				Product:     product,
				Quarter:     quarter,
				Name:        r.String("feature_name"),
				Description: r.String("feature_description"),
				Votes:       r.Int("votes"),
				Status:      r.String("status"),
			})
		case metrics.DatasetForums:
			batch.Forums = append(batch.Forums, metrics.ForumEntry{
				Product:   product,
				Quarter:   quarter,
				ForumName: r.String("forum_name"),
			})
		}
	}
	return batch
}
