package match

// Route selects the scoring strategy for a run.
type Route int

const (
	// RouteDirect scores every job with the LLM, no embedding pre-filter.
	RouteDirect Route = iota
	// RouteFiltered embeds résumé and jobs first and LLM-scores only the
	// top-N by cosine similarity.
	RouteFiltered
)

func (r Route) String() string {
	if r == RouteFiltered {
		return "filtered"
	}
	return "direct"
}

// Decide picks the scoring route from the number of extracted jobs. Small
// batches are affordable to scrutinize one by one; above the threshold a
// cheap embedding pass cuts the LLM cost first. The boundary case
// jobCount == threshold stays direct.
func Decide(jobCount, threshold int) Route {
	if jobCount > threshold {
		return RouteFiltered
	}
	return RouteDirect
}
