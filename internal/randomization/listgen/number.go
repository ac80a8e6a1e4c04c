package listgen

import "fmt"

// Number formats a randomization number. The trailing eight digits are fixed
// width, so numbers stay unique even once config ids outgrow six digits.
func Number(prefix string, configID uint, stratumIndex, sequence int) string {
	return fmt.Sprintf("%s-%06d%03d%05d", prefix, configID, stratumIndex, sequence)
}
