package release

// Phase names a pipeline step. Error records carry the phase active when they
// were added.
type Phase string

const (
	PhasePreUpdateVersions Phase = "PRE_UPDATE_VERSIONS"
	PhaseUpdateVersions    Phase = "UPDATE_VERSIONS"
	PhasePreRelease        Phase = "PRE_RELEASE"
	PhaseBuild             Phase = "BUILD"
	PhasePreJarRelease     Phase = "PRE_JAR_RELEASE"
	PhasePublish           Phase = "PUBLISH"
	PhasePostJarRelease    Phase = "POST_JAR_RELEASE"
	PhasePostRelease       Phase = "POST_RELEASE"
)

// Phases lists every phase in execution order.
func Phases() []Phase {
	return []Phase{
		PhasePreUpdateVersions,
		PhaseUpdateVersions,
		PhasePreRelease,
		PhaseBuild,
		PhasePreJarRelease,
		PhasePublish,
		PhasePostJarRelease,
		PhasePostRelease,
	}
}

func (p Phase) String() string { return string(p) }
