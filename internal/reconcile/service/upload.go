package service

import (
	"strings"

	"github.com/rotisserie/eris"

	"cost-recon/internal/reconcile/model"
	"cost-recon/internal/utils"
)

// Procurement comments written back for uploaded rows.
const (
	CommentForecast = "Forecast price has been uploaded to CCS"
	CommentUploaded = "Cost is uploaded to CCS"
)

// UploadPlan is the priced subset of a tracker, ready for the upload template.
type UploadPlan struct {
	Lines    []model.UploadLine
	Comments map[model.TrackerKey]string // new procurement comment per processed row
	Skipped  model.SkipLog
}

// CostUpload prices every tracker row whose site is known and whose procurement
// comment is still empty.
func (p *PriceResolver) CostUpload(tracker model.Sheet, sites model.SiteDirectory, progress model.ProgressFunc) (UploadPlan, error) {
	plan := UploadPlan{Comments: make(map[model.TrackerKey]string)}
	cols := map[string]string{}
	var missing []string
	for _, want := range []string{model.TrackerPart, model.TrackerSite, model.TrackerDate} {
		c, ok := ResolveColumn(tracker.Columns, want)
		if !ok {
			missing = append(missing, want)
			continue
		}
		cols[want] = c
	}
	if len(missing) > 0 {
		return plan, eris.Wrapf(ErrMissingColumns, "tracker: %s", strings.Join(missing, ", "))
	}
	commentCol, hasComment := ResolveColumn(tracker.Columns, model.TrackerComments)
	descCol, hasDesc := ResolveColumn(tracker.Columns, model.TrackerDesc)

	var todo []model.Record
	for _, r := range tracker.Rows {
		if _, ok := sites[utils.PadSiteCode(r[cols[model.TrackerSite]])]; !ok {
			continue
		}
		if hasComment && !emptyComment(r[commentCol]) {
			continue
		}
		todo = append(todo, r)
	}
	progress.Report(30, "looking up prices")

	for i, r := range todo {
		part := r[cols[model.TrackerPart]]
		site := utils.PadSiteCode(r[cols[model.TrackerSite]])
		res, skips := p.Resolve(part, site, r[cols[model.TrackerDate]], sites)
		plan.Skipped = append(plan.Skipped, skips...)

		line := model.UploadLine{
			PartNumber:   strings.TrimSpace(part),
			SiteCode:     site,
			Supplier:     res.Supplier,
			Price:        res.Price,
			VendorCode:   res.VendorCode,
			CostType:     res.CostType,
			SourceFolder: res.SourceFolder,
			Comment:      ProcurementComment(res),
		}
		if hasDesc {
			line.Description = r[descCol]
		}
		plan.Lines = append(plan.Lines, line)
		plan.Comments[model.NewTrackerKey(part, site, r[cols[model.TrackerDate]])] = line.Comment
		progress.Report(30+20*(i+1)/len(todo), "looking up prices")
	}
	p.log.Info().Int("tracker_rows", len(tracker.Rows)).Int("priced", len(plan.Lines)).
		Int("skipped", len(plan.Skipped)).Msg("cost upload plan ready")
	return plan, nil
}

// ProcurementComment says whether a real cost or the forecast went to CCS.
func ProcurementComment(res model.PriceResolution) string {
	if strings.TrimSpace(res.Price) == "" || res.CostType == model.CostTypeForecast {
		return CommentForecast
	}
	if res.SourceFolder != "" {
		return "Cost from " + res.SourceFolder + " uploaded to CCS"
	}
	return CommentUploaded
}

func emptyComment(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "nan")
}
