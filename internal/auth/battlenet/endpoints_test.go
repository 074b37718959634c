package battlenet

import (
	"net/url"
	"strings"
	"testing"
)

func TestResolveEndpointsKnownRegions(t *testing.T) {
	for _, region := range KnownRegions {
		t.Run(region, func(t *testing.T) {
			e := ResolveEndpoints(region)
			urls := []string{e.AuthURL, e.TokenURL, e.UserInfoURL, e.CharactersURL}

			generic, special := 0, 0
			for _, raw := range urls {
				u, err := url.Parse(raw)
				if err != nil {
					t.Fatalf("invalid url %q: %v", raw, err)
				}
				switch {
				case strings.HasSuffix(u.Host, "battlenet.com.cn"):
					special++
				case strings.HasSuffix(u.Host, ".battle.net"):
					generic++
					if !strings.HasPrefix(u.Host, region+".") {
						t.Errorf("host %q does not start with region %q", u.Host, region)
					}
				default:
					t.Errorf("host %q belongs to no family", u.Host)
				}
			}

			if generic != 0 && special != 0 {
				t.Errorf("region %q mixes families: %+v", region, e)
			}
			if (region == "cn") != (special == len(urls)) {
				t.Errorf("region %q resolved to wrong family: %+v", region, e)
			}
		})
	}
}

func TestResolveEndpointsExact(t *testing.T) {
	tests := []struct {
		region string
		want   Endpoints
	}{
		{
			region: "eu",
			want: Endpoints{
				AuthURL:       "https://eu.battle.net/oauth/authorize",
				TokenURL:      "https://eu.battle.net/oauth/token",
				UserInfoURL:   "https://eu.api.battle.net/account/user",
				CharactersURL: "https://eu.api.battle.net/wow/user/characters",
			},
		},
		{
			region: "cn",
			want: Endpoints{
				AuthURL:       "https://www.battlenet.com.cn/oauth/authorize",
				TokenURL:      "https://www.battlenet.com.cn/oauth/token",
				UserInfoURL:   "https://api.battlenet.com.cn/account/user",
				CharactersURL: "https://api.battlenet.com.cn/wow/user/characters",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			if got := ResolveEndpoints(tt.region); got != tt.want {
				t.Errorf("ResolveEndpoints(%q) = %+v, want %+v", tt.region, got, tt.want)
			}
		})
	}
}

func TestNormalizeRegion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"us", "us"},
		{" EU ", "eu"},
		{"CN", "cn"},
		{"sea", "sea"},
		{"", DefaultRegion},
		{"us.evil.com", DefaultRegion},
		{"e u", DefaultRegion},
		{"-us", DefaultRegion},
	}

	for _, tt := range tests {
		if got := NormalizeRegion(tt.in); got != tt.want {
			t.Errorf("NormalizeRegion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveEndpointsUnknownRegionUsesGeneric(t *testing.T) {
	e := ResolveEndpoints("sea")
	if e.UserInfoURL != "https://sea.api.battle.net/account/user" {
		t.Errorf("UserInfoURL = %q", e.UserInfoURL)
	}
}

func TestEndpointsForBase(t *testing.T) {
	e := EndpointsForBase("http://127.0.0.1:9999/")
	if e.TokenURL != "http://127.0.0.1:9999/oauth/token" || e.CharactersURL != "http://127.0.0.1:9999/wow/user/characters" {
		t.Errorf("EndpointsForBase() = %+v", e)
	}
}
