package recipe

import "errors"

var ErrRecipe = errors.New("recipe is invalid")
