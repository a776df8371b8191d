package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityUser                        // Any valid bearer token
	SecurityAdmin                       // Bearer token with the admin role
)

// EndpointSecurityConfig maps route names to their required security level.
// Routes that are not listed default to SecurityUser.
var EndpointSecurityConfig = map[string]SecurityLevel{
	"healthz": SecurityPublic,
	"metrics": SecurityPublic,

	"resources.list":     SecurityPublic,
	"resources.get":      SecurityPublic,
	"availability.check": SecurityPublic,
	"bookings.calendar":  SecurityPublic,
	"discounts.quote":    SecurityPublic,

	"softlocks.acquire": SecurityUser,
	"softlocks.release": SecurityUser,
	"softlocks.get":     SecurityUser,
	"bookings.create":   SecurityUser,
	"bookings.get":      SecurityUser,
	"bookings.cancel":   SecurityUser,
	"bookings.mine":     SecurityUser,
	"ratings.mine":      SecurityUser,
	"penalties.mine":    SecurityUser,
	"penalties.dispute": SecurityUser,

	"notifications.mine": SecurityUser,
	"notifications.read": SecurityUser,

	"bookings.confirm":  SecurityAdmin,
	"bookings.complete": SecurityAdmin,
	"penalties.create":  SecurityAdmin,
	"penalties.approve": SecurityAdmin,
	"penalties.waive":   SecurityAdmin,
	"penalties.pay":     SecurityAdmin,
	"ratings.get":       SecurityAdmin,
	"ratings.credit":    SecurityAdmin,
	"sweeps.overdue":    SecurityAdmin,
	"sweeps.expiry":     SecurityAdmin,
	"sweeps.reminders":  SecurityAdmin,
	"sweeps.status":     SecurityAdmin,
	"resources.create":  SecurityAdmin,
	"resources.status":  SecurityAdmin,
	"discounts.create":  SecurityAdmin,
}

// RequiredLevel returns the security level for a route name.
func RequiredLevel(route string) SecurityLevel {
	if level, ok := EndpointSecurityConfig[route]; ok {
		return level
	}
	return SecurityUser
}
