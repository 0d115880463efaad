package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	codesIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_auth_codes_issued_total",
			Help: "Verification codes issued, by purpose.",
		},
		[]string{"purpose"},
	)
	codeRedemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_auth_code_redemptions_total",
			Help: "Verification code redemption attempts, by result.",
		},
		[]string{"result"},
	)
	impersonations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "studio_auth_impersonations_total",
			Help: "Impersonation codes minted by platform admins.",
		},
	)
	permissionDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_permission_denied_total",
			Help: "Capability checks that failed, by capability.",
		},
		[]string{"capability"},
	)
	tenantMismatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "studio_tenant_mismatch_total",
			Help: "Requests rejected for naming a tenant other than the session tenant.",
		},
	)
)

func init() {
	prometheus.MustRegister(codesIssued, codeRedemptions, impersonations, permissionDenied, tenantMismatches)
}

func RecordCodeIssued(purpose string) {
	codesIssued.WithLabelValues(purpose).Inc()
}

func RecordRedemption(result string) {
	codeRedemptions.WithLabelValues(result).Inc()
}

func RecordImpersonation() {
	impersonations.Inc()
}

func RecordPermissionDenied(capability string) {
	permissionDenied.WithLabelValues(capability).Inc()
}

func RecordTenantMismatch() {
	tenantMismatches.Inc()
}
