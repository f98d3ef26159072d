// SPDX-License-Identifier: MPL-2.0

package script

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pmake/pmake/internal/cache"
)

func init() {
	registerAll(CategoryCache,
		Builtin{
			Name:        "set_variable_in_cache",
			Usage:       "[--no-overwrite] NAME VALUE",
			Description: "Store VALUE under NAME in the persistent cache",
			Run:         runSetVariableInCache,
		},
		Builtin{
			Name:        "has_variable_in_cache",
			Usage:       "NAME",
			Description: "Succeed when NAME is in the cache",
			Run:         runHasVariableInCache,
		},
		Builtin{
			Name:        "get_variable_in_cache",
			Usage:       "NAME",
			Description: "Print the cached value of NAME; fail when absent",
			Run:         runGetVariableInCache,
		},
		Builtin{
			Name:        "get_variable_in_cache_or",
			Usage:       "NAME DEFAULT",
			Description: "Print the cached value of NAME, or DEFAULT when absent",
			Run:         runGetVariableInCacheOr,
		},
		Builtin{
			Name:        "add_or_update_variable_in_cache",
			Usage:       "[--increment | --append SEP] NAME VALUE",
			Description: "Set NAME to VALUE when absent, otherwise combine the cached value with VALUE",
			Run:         runAddOrUpdateVariableInCache,
		},
		Builtin{
			Name:        "remove_variable_in_cache",
			Usage:       "NAME",
			Description: "Remove NAME from the cache; fail when absent",
			Run:         runRemoveVariableInCache,
		},
		Builtin{
			Name:        "clear_cache",
			Description: "Remove every entry of the cache",
			Run:         runClearCache,
		},
	)
}

func (c *Call) cache() (*cache.Store, error) {
	store := c.Session.Cache()
	if store == nil {
		return nil, ErrNoCache
	}
	return store, nil
}

func runSetVariableInCache(_ context.Context, c *Call) error {
	fs := c.Flags()
	noOverwrite := fs.Bool("no-overwrite", false, "keep an existing value")
	args, err := c.Parse(fs, 2, 2)
	if err != nil {
		return err
	}
	store, err := c.cache()
	if err != nil {
		return err
	}
	if !store.Set(args[0], args[1], !*noOverwrite) {
		c.Logger().Debug("cache entry kept", "name", args[0])
	}
	return nil
}

func runHasVariableInCache(_ context.Context, c *Call) error {
	args, err := c.positional(1, 1)
	if err != nil {
		return err
	}
	store, err := c.cache()
	if err != nil {
		return err
	}
	return answer(store.Has(args[0]))
}

func runGetVariableInCache(_ context.Context, c *Call) error {
	args, err := c.positional(1, 1)
	if err != nil {
		return err
	}
	store, err := c.cache()
	if err != nil {
		return err
	}
	v, ok := store.GetString(args[0])
	if !ok {
		return fmt.Errorf("no variable %q in cache %s", args[0], store.Path())
	}
	c.Println(v)
	return nil
}

func runGetVariableInCacheOr(_ context.Context, c *Call) error {
	args, err := c.positional(2, 2)
	if err != nil {
		return err
	}
	store, err := c.cache()
	if err != nil {
		return err
	}
	v, ok := store.GetString(args[0])
	if !ok {
		v = args[1]
	}
	c.Println(v)
	return nil
}

func runAddOrUpdateVariableInCache(_ context.Context, c *Call) error {
	fs := c.Flags()
	increment := fs.Bool("increment", false, "add VALUE to the cached integer")
	sep := fs.String("append", "", "append VALUE to the cached string, separated by SEP")
	args, err := c.Parse(fs, 2, 2)
	if err != nil {
		return err
	}
	appendSet := fs.Changed("append")
	if *increment && appendSet {
		return c.usageError("--increment and --append are mutually exclusive")
	}
	name, value := args[0], args[1]

	var delta int
	if *increment {
		if delta, err = strconv.Atoi(value); err != nil {
			return c.usageError(fmt.Sprintf("%q is not an integer", value))
		}
	}

	store, err := c.cache()
	if err != nil {
		return err
	}

	var updateErr error
	store.Update(name, func(old any, present bool) any {
		if !present {
			return value
		}
		oldStr := fmt.Sprint(old)
		switch {
		case *increment:
			n, err := strconv.Atoi(oldStr)
			if err != nil {
				updateErr = fmt.Errorf("cached value %q of %s is not an integer", oldStr, name)
				return old
			}
			return strconv.Itoa(n + delta)
		case appendSet:
			return oldStr + *sep + value
		default:
			return value
		}
	})
	return updateErr
}

func runRemoveVariableInCache(_ context.Context, c *Call) error {
	args, err := c.positional(1, 1)
	if err != nil {
		return err
	}
	store, err := c.cache()
	if err != nil {
		return err
	}
	return answer(store.Delete(args[0]))
}

func runClearCache(_ context.Context, c *Call) error {
	if _, err := c.positional(0, 0); err != nil {
		return err
	}
	store, err := c.cache()
	if err != nil {
		return err
	}
	store.Reset()
	return nil
}
