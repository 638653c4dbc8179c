package testutils

import (
	"fmt"

	rosterservice "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/application"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/brianvoe/gofakeit/v7"
)

// TestDataGenerator builds rosters from a seeded faker so failures reproduce.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

func NewTestDataGenerator(seed uint64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// Teams returns n distinct teams, each on its own /24 with the VM at .2.
func (g *TestDataGenerator) Teams(n int) []rosterservice.TeamInput {
	teams := make([]rosterservice.TeamInput, n)
	for i := range teams {
		teams[i] = rosterservice.TeamInput{
			Name:        fmt.Sprintf("%s-%d", g.faker.Username(), i+1),
			TeamNetwork: fmt.Sprintf("10.60.%d.0/24", i+1),
			VMAddress:   fmt.Sprintf("10.60.%d.2", i+1),
		}
	}
	return teams
}

// Services returns n distinct services of the given type.
func (g *TestDataGenerator) Services(n int, kind sharedtypes.ServiceType) []rosterservice.ServiceInput {
	services := make([]rosterservice.ServiceInput, n)
	for i := range services {
		services[i] = rosterservice.ServiceInput{
			Name:        fmt.Sprintf("%s-%d", g.faker.AppName(), i+1),
			Description: g.faker.HackerPhrase(),
			Type:        kind,
			Port:        g.faker.Number(1024, 65000),
			RepoURL:     g.faker.URL(),
		}
	}
	return services
}
