package vegas

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"vegas_gateway/internal/catalog"
	"vegas_gateway/internal/rpcerr"
)

var ErrGameURLNotConfigured = errors.New("game url template not configured")

// GameURLTemplates hold launch URL patterns. Each may use the placeholders
// {lang}, {game} and {token}. Real templates are used when a token is
// given, demo templates otherwise. Live dealer games have no demo mode.
type GameURLTemplates struct {
	Real            string
	Demo            string
	MobileReal      string
	MobileDemo      string
	LiveDealersReal string
}

// GameURL builds the provider launch URL for game. An empty token launches
// demo mode.
func (p *Processor) GameURL(game *catalog.Game, lang, token string) (string, error) {
	code := game.Code
	var pattern string
	switch game.ParentThemeID {
	case catalog.ThemeMobile:
		code = strings.TrimPrefix(code, catalog.MobileGameCodePrefix)
		pattern = pick(token, p.urls.MobileReal, p.urls.MobileDemo)
	case catalog.ThemeLiveDealers:
		code = strings.TrimPrefix(code, catalog.LiveDealersGameCodePrefix)
		pattern = p.urls.LiveDealersReal
	default:
		pattern = pick(token, p.urls.Real, p.urls.Demo)
	}
	if pattern == "" {
		return "", ErrGameURLNotConfigured
	}

	// Greek is "gr" on the platform and "el" (ISO 639) at the provider.
	if lang == "gr" {
		lang = "el"
	}
	r := strings.NewReplacer("{lang}", lang, "{game}", url.QueryEscape(code), "{token}", token)
	return r.Replace(pattern), nil
}

// LaunchURL resolves gameReference and builds its launch URL.
func (p *Processor) LaunchURL(ctx context.Context, gameReference, lang, token string) (string, error) {
	game, err := p.resolveGame(ctx, gameReference)
	if err != nil {
		return "", err
	}
	u, err := p.GameURL(game, lang, token)
	if err != nil {
		return "", rpcerr.Wrap(rpcerr.CodeInternal, err)
	}
	return u, nil
}

func pick(token, realURL, demoURL string) string {
	if token != "" {
		return realURL
	}
	return demoURL
}
