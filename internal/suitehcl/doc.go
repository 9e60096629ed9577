// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

/*
Package suitehcl loads suite definitions written in HCL.

A definition is one file or a directory tree of `.hcl` files. Between them
they hold exactly one `suite` block with the clock and named alarms, plus any
number of top-level `task`, `family` and `array` blocks, kept in source
order:

	suite "gfs" {
	  clock {
	    start = "2024-01-01T00:00:00Z"
	    step  = "6h"
	    end   = "2024-01-03T18:00:00Z"
	  }
	  alarm "daily" {
	    start = "2024-01-01T00:00:00Z"
	    step  = "24h"
	  }
	}

	family "gdas" {
	  task "prep" {
	    trigger = at(gdas.post, "-6h") || !cycle_exists("-6h")
	    events  = ["obs_ready"]
	  }
	  task "fcst" {
	    trigger = event(gdas.prep, "obs_ready")
	  }
	  array "post" {
	    dimensions = { grp = ["a", "b"] }
	    task "post" {
	      name    = "post_${dimval.grp}"
	      trigger = completed("gdas.fcst")
	    }
	  }
	}

Trigger and completion expressions use HCL's boolean operators over node
references. A bare reference such as `gdas.prep` waits for completion; the
functions completed, running, failed, exists, event, cycle_exists, at, all
and any cover the rest. Inside an array, string arguments may interpolate
`dimval` and `dimidx`, the value and position of each dimension.
*/
package suitehcl
