package blinding

import (
	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
)

const BlindedLabel = "[Blinded]"

// Presentation is what a caller is shown about an assigned arm.
type Presentation struct {
	ArmID     string `json:"armId"`
	Label     string `json:"label"`
	IsBlinded bool   `json:"isBlinded"`
}

// Present masks the arm name for every level other than open label. The arm
// id is always returned for systems holding unblinding rights. Single and
// double blind are masked identically; the level itself is stored on the
// scheme for downstream unblinding workflows.
func Present(armID, armName string, level domain.BlindingLevel) Presentation {
	if level == domain.OpenLabel {
		label := armName
		if label == "" {
			label = armID
		}
		return Presentation{ArmID: armID, Label: label}
	}
	return Presentation{ArmID: armID, Label: BlindedLabel, IsBlinded: true}
}
