package models

// SiteLoad pairs a site with its pending-order count within a horizon.
type SiteLoad struct {
	SiteID   int64 `json:"site_id"`
	Workload int   `json:"workload"`
}

type Recommendation struct {
	Action          string `json:"action"`
	FromSiteID      int64  `json:"from_site"`
	ToSiteID        int64  `json:"to_site"`
	RadiologistID   string `json:"radiologist"`
	RadiologistName string `json:"radiologist_name"`
	Reason          string `json:"reason"`
}

// OptimizationResult is the advisory output of one workload-optimizer run.
// Nothing in it is applied automatically.
type OptimizationResult struct {
	SiteWorkloads        map[int64]int      `json:"site_workloads"`
	RadiologistWorkloads map[string]float64 `json:"radiologist_workloads"`
	OverloadedSites      []SiteLoad         `json:"overworked_sites"`
	UnderloadedSites     []SiteLoad         `json:"underworked_sites"`
	Recommendations      []Recommendation   `json:"recommendations"`
	AverageWorkload      float64            `json:"average_workload"`
}
