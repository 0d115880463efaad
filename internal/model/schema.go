package model

// IndexSpec describes a global secondary index with string keys.
type IndexSpec struct {
	Name     string
	HashKey  string
	RangeKey string
}

// TableSpec describes a table with a string hash key.
type TableSpec struct {
	Name    string
	HashKey string
	Indexes []IndexSpec
}

func Schema() []TableSpec {
	return []TableSpec{
		{Name: TenantsTable, HashKey: "tenantId"},
		{Name: TenantSlugsTable, HashKey: "slug"},
		{
			Name:    UsersTable,
			HashKey: "email",
			Indexes: []IndexSpec{{Name: IndexByUserID, HashKey: "userId"}},
		},
		{
			Name:    MembershipsTable,
			HashKey: "pk",
			Indexes: []IndexSpec{
				{Name: IndexByMembershipID, HashKey: "membershipId"},
				{Name: IndexByEmail, HashKey: "email"},
				{Name: IndexByTenant, HashKey: "tenantId"},
			},
		},
		{Name: ClientsTable, HashKey: "pk", Indexes: []IndexSpec{{Name: IndexByTenant, HashKey: "tenantId"}}},
		{Name: AgentsTable, HashKey: "pk", Indexes: []IndexSpec{{Name: IndexByTenant, HashKey: "tenantId"}}},
		{Name: BookingsTable, HashKey: "pk", Indexes: []IndexSpec{{Name: IndexByTenant, HashKey: "tenantId"}}},
		{
			Name:    AuditLogTable,
			HashKey: "eventId",
			Indexes: []IndexSpec{{Name: IndexByKind, HashKey: "kind", RangeKey: "createdAt"}},
		},
	}
}
