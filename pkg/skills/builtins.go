package skills

import (
	"github.com/witong42/OpenSpore/pkg/memory"
	"github.com/witong42/OpenSpore/pkg/swarm"
)

// RegisterBuiltins populates the loader with the core skills.
// Sub-spores do not get DELEGATE: a delegated process must not fan out
// further.
func RegisterBuiltins(loader *SkillLoader, workspace string, store *memory.Store, manager *swarm.SwarmManager, isSpore bool) {
	var markWritten func(string)
	if store != nil {
		markWritten = store.MarkWritten
	}

	loader.Register(NewReadFileSkill())
	loader.Register(NewWriteFileSkill(markWritten))
	loader.Register(NewEditFileSkill(markWritten))
	loader.Register(NewDiffPatchSkill(markWritten))
	loader.Register(NewListDirSkill())
	loader.Register(NewExecSkill(workspace))
	loader.Register(NewGrepSkill(workspace))
	loader.Register(NewWebFetchSkill())

	if store != nil {
		loader.Register(NewMemorySaveSkill(store))
	}
	if manager != nil && !isSpore {
		loader.Register(NewDelegateSkill(manager))
	}
}
