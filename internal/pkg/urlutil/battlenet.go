package urlutil

import "fmt"

// BattleNetOAuthHost returns the OAuth host for a region in the generic family.
// Returns a host like: https://{region}.battle.net
func BattleNetOAuthHost(region string) string {
	return fmt.Sprintf("https://%s.battle.net", region)
}

// BattleNetAPIHost returns the API host for a region in the generic family.
// Returns a host like: https://{region}.api.battle.net
func BattleNetAPIHost(region string) string {
	return fmt.Sprintf("https://%s.api.battle.net", region)
}
