package http

import (
	"contactsift/internal/keywords"
	"contactsift/internal/services"
	api "contactsift/pkg/contracts/api/v1"
	"contactsift/pkg/contracts/domain"
)

func toSiftResponse(res *services.SiftResult) api.SiftResponse {
	out := api.SiftResponse{
		RunID:         res.RunID,
		Filename:      res.Filename,
		PartitionMode: string(res.PartitionMode),
		GenderOrder:   string(res.GenderOrder),
		Rows:          res.Rows,
		MatchedRows:   res.MatchedRows,
		Keywords:      res.Keywords,
		Conditions:    res.Conditions,
		Steps:         make([]api.StepResult, 0, len(res.Steps)),
		GenderStats: api.GenderStats{
			Lookups:   res.GenderStats.Lookups,
			CacheHits: res.GenderStats.CacheHits,
			Unknown:   res.GenderStats.Unknown,
		},
		Uploaded:   toTablePreview(res.Uploaded),
		Matched:    toTablePreview(res.Matched),
		DurationMS: res.Duration.Milliseconds(),
	}
	if out.Conditions == nil {
		out.Conditions = domain.Conditions{}
	}
	for _, st := range res.Steps {
		out.Steps = append(out.Steps, api.StepResult{
			ID:        st.ID,
			Name:      st.Name,
			Status:    string(st.Status),
			Message:   st.Message,
			Condition: st.Condition,
		})
	}
	if res.Gender != nil {
		g := toTablePreview(*res.Gender)
		out.Gender = &g
	}
	if d := res.Download; d != nil {
		out.Download = &api.DownloadLink{
			URL:       "/download/" + d.ID,
			Filename:  d.Filename,
			SizeBytes: d.Size,
			Sheets:    d.Sheets,
			ExpiresAt: d.ExpiresAt,
		}
	}
	return out
}

func toTablePreview(p services.Preview) api.TablePreview {
	return api.TablePreview{Headers: p.Headers, Rows: p.Rows, Total: p.Total}
}

func toKeywordsResponse(snap *keywords.Snapshot) api.KeywordsResponse {
	words := snap.Keywords.Words()
	if words == nil {
		words = []string{}
	}
	return api.KeywordsResponse{
		Keywords:    words,
		Count:       len(words),
		Configured:  snap.Configured(),
		Version:     snap.Version,
		Fingerprint: snap.Fingerprint,
		LoadedAt:    snap.LoadedAt,
	}
}
