package battlenet

import (
	"regexp"
	"strings"

	"golang.org/x/oauth2"

	"github.com/devilmonastery/bnetsso/internal/pkg/urlutil"
)

// DefaultRegion is used when the configured region is unusable
const DefaultRegion = "us"

// KnownRegions lists the regions Battle.net serves
var KnownRegions = []string{"us", "eu", "kr", "tw", "cn"}

// Endpoints are the four regional URLs used during a login
type Endpoints struct {
	AuthURL       string
	TokenURL      string
	UserInfoURL   string
	CharactersURL string
}

// OAuth2 returns the oauth2 endpoint pair
func (e Endpoints) OAuth2() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   e.AuthURL,
		TokenURL:  e.TokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

const (
	authPath       = "/oauth/authorize"
	tokenPath      = "/oauth/token"
	userInfoPath   = "/account/user"
	charactersPath = "/wow/user/characters"
)

// regionFamily maps a region to its OAuth and API hosts
type regionFamily struct {
	oauthHost string
	apiHost   string
}

// specialFamilies holds regions served from their own domain
var specialFamilies = map[string]regionFamily{
	"cn": {
		oauthHost: "https://www.battlenet.com.cn",
		apiHost:   "https://api.battlenet.com.cn",
	},
}

var dnsLabel = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// NormalizeRegion trims and lower-cases a region code. A value that cannot
// form a hostname label falls back to DefaultRegion.
func NormalizeRegion(region string) string {
	region = strings.ToLower(strings.TrimSpace(region))
	if !dnsLabel.MatchString(region) {
		return DefaultRegion
	}
	return region
}

// ResolveEndpoints returns the URLs for a region
func ResolveEndpoints(region string) Endpoints {
	region = NormalizeRegion(region)

	fam, ok := specialFamilies[region]
	if !ok {
		fam = regionFamily{
			oauthHost: urlutil.BattleNetOAuthHost(region),
			apiHost:   urlutil.BattleNetAPIHost(region),
		}
	}
	return fam.endpoints()
}

func (f regionFamily) endpoints() Endpoints {
	return Endpoints{
		AuthURL:       f.oauthHost + authPath,
		TokenURL:      f.oauthHost + tokenPath,
		UserInfoURL:   f.apiHost + userInfoPath,
		CharactersURL: f.apiHost + charactersPath,
	}
}

// EndpointsForBase builds endpoints with every URL rooted at baseURL.
// Used to point the provider at a stand-in server.
func EndpointsForBase(baseURL string) Endpoints {
	base := strings.TrimRight(baseURL, "/")
	return regionFamily{oauthHost: base, apiHost: base}.endpoints()
}
