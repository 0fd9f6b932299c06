package qbridge

import "github.com/jward/qbridge/internal/store"

// Public type aliases for internal store types used in the QueryBuilder API.

type Store = store.Store
type File = store.File
type Bridge = store.Bridge
type QObject = store.QObject
type Property = store.Property
type DeclaredSignal = store.DeclaredSignal
type SignalParam = store.SignalParam
type PassthroughItem = store.PassthroughItem
type Signal = store.Signal
type Fragment = store.Fragment
