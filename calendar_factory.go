package main

import (
	"context"
	"fmt"
	"sort"
)

// CalendarFactory builds the overlay calendars configured under [caldavs].
type CalendarFactory struct {
	config *Config
}

func NewCalendarFactory(config *Config) *CalendarFactory {
	return &CalendarFactory{config: config}
}

// Overlays returns one provider per configured server, ordered by key.
func (cf *CalendarFactory) Overlays() ([]*CalDAVProvider, error) {
	names := make([]string, 0, len(cf.config.CalDAVs))
	for name := range cf.config.CalDAVs {
		names = append(names, name)
	}
	sort.Strings(names)

	providers := make([]*CalDAVProvider, 0, len(names))
	for _, name := range names {
		p, err := cf.CreateCalendarProvider(name)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}

func (cf *CalendarFactory) CreateCalendarProvider(serverName string) (*CalDAVProvider, error) {
	server, ok := cf.config.CalDAVs[serverName]
	if !ok {
		return nil, fmt.Errorf("CalDAV server '%s' not found in configuration", serverName)
	}
	p, err := NewCalDAVProvider(serverName, server, cf.config.Location())
	if err != nil {
		return nil, fmt.Errorf("error creating CalDAV provider %s: %w", serverName, err)
	}
	return p, nil
}

// ValidateCalendarAccess checks that the provider's calendar is reachable.
func (cf *CalendarFactory) ValidateCalendarAccess(ctx context.Context, provider *CalDAVProvider) error {
	ctx, cancel := context.WithTimeout(ctx, cf.config.RequestTimeout.Duration)
	defer cancel()
	return provider.GetCalendar(ctx)
}

func asCalendarProviders(providers []*CalDAVProvider) []CalendarProvider {
	out := make([]CalendarProvider, len(providers))
	for i, p := range providers {
		out[i] = p
	}
	return out
}
